package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

// dbPinger and bucketChecker are the slices of the pgx pool and MinIO client
// the readiness probe depends on.
type dbPinger interface {
	Ping(ctx context.Context) error
}

type bucketChecker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		component, err := checkReadiness(ctx, deps.DB, deps.ObjectStore, deps.Config.MinIO.Bucket)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"component": component,
				"error":     err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// checkReadiness verifies the metadata store answers and the image bucket is
// reachable. Both in-flight chunks and published assets live in that bucket,
// so its absence means every upload path would fail immediately.
func checkReadiness(ctx context.Context, db dbPinger, store bucketChecker, bucket string) (string, error) {
	if err := db.Ping(ctx); err != nil {
		return "postgres", err
	}

	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return "minio", err
	}
	if !exists {
		return "minio", fmt.Errorf("bucket %q does not exist", bucket)
	}

	return "", nil
}
