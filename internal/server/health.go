package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

// Pinger is satisfied by *pgxpool.Pool and by PingFunc.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function such as (*sql.DB).PingContext to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BucketChecker is the part of *minio.Client used for readiness.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    deps.Config.App.Name,
			"version": deps.Config.App.Version,
		})
	})

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		checks := gin.H{}
		ready := true
		record := func(name string, err error) {
			if err != nil {
				ready = false
				checks[name] = err.Error()
				return
			}
			checks[name] = "ok"
		}

		record("database", checkDatabase(ctx, deps))
		record("storage", checkStorage(deps))
		if deps.ObjectStore != nil {
			record("object_store", checkObjectStore(ctx, deps))
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
	})
}

func checkDatabase(ctx context.Context, deps Dependencies) error {
	if deps.DB == nil {
		return fmt.Errorf("database not configured")
	}
	return deps.DB.Ping(ctx)
}

func checkStorage(deps Dependencies) error {
	for _, disk := range deps.Disks {
		if err := disk.Probe(); err != nil {
			return fmt.Errorf("%s: %w", disk.Dir(), err)
		}
	}
	return nil
}

func checkObjectStore(ctx context.Context, deps Dependencies) error {
	bucket := deps.Config.MinIO.Bucket
	exists, err := deps.ObjectStore.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}
	return nil
}
