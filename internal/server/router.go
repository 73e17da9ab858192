package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/picshare/picshare/internal/auth"
	"github.com/picshare/picshare/internal/config"
	"github.com/picshare/picshare/internal/image"
	"github.com/picshare/picshare/internal/logger"
	"github.com/picshare/picshare/internal/metrics"
	"github.com/picshare/picshare/internal/stats"
	"github.com/picshare/picshare/internal/upload"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config       config.Config
	DB           *pgxpool.Pool
	ObjectStore  *minio.Client
	Log          *zap.Logger
	AuthService  *auth.Service
	ImageService *image.Service
	Coordinator  *upload.Coordinator
	Recorder     *stats.Recorder
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Log))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/api")

	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)
	}

	// Uploads and reads work anonymously; auth only attaches an uploader
	// identity when a token is present.
	public := api.Group("/")
	if deps.AuthService != nil {
		public.Use(auth.OptionalAuthMiddleware(deps.AuthService))
	}

	if deps.Coordinator != nil {
		upload.RegisterRoutes(public, deps.Coordinator)
	}
	if deps.ImageService != nil {
		image.RegisterRoutes(public, image.HandlerConfig{
			Service:     deps.ImageService,
			Recorder:    deps.Recorder,
			AuthService: deps.AuthService,
			PublicURL:   deps.Config.Server.PublicURL,
		})
	}
	if deps.Recorder != nil {
		stats.RegisterRoutes(api, deps.Recorder)
	}

	return router
}
