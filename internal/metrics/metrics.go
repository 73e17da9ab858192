package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploadsTotal    *prometheus.CounterVec
	visitsTotal     prometheus.Counter
)

// InitMetrics registers the PicShare collectors. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picshare_http_requests_total",
			Help: "HTTP requests processed, by method, path and status.",
		}, []string{"method", "path", "status"})

		requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "picshare_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picshare_uploads_total",
			Help: "Completed uploads, by kind (direct, batch, chunked).",
		}, []string{"kind"})

		visitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picshare_image_visits_total",
			Help: "Recorded image visits.",
		})

		prometheus.MustRegister(requestsTotal, requestDuration, uploadsTotal, visitsTotal)
	})
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		if requestsTotal != nil {
			requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		}
		if requestDuration != nil {
			requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		}
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// CountUpload increments the completed-upload counter for the given kind.
func CountUpload(kind string) {
	if uploadsTotal != nil {
		uploadsTotal.WithLabelValues(kind).Inc()
	}
}

// CountVisit increments the recorded-visit counter.
func CountVisit() {
	if visitsTotal != nil {
		visitsTotal.Inc()
	}
}
