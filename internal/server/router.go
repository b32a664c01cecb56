package server

import (
	"github.com/abduss/transmute/internal/config"
	"github.com/abduss/transmute/internal/conversion"
	"github.com/abduss/transmute/internal/file"
	"github.com/abduss/transmute/internal/logger"
	"github.com/abduss/transmute/internal/metrics"
	"github.com/gin-gonic/gin"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	DB          Pinger
	Disks       []*file.Disk
	ObjectStore BucketChecker
	Files       *file.Service
	Converted   *file.Service
	Conversions *conversion.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	if deps.Config.Metrics.PrometheusPath != "" {
		metrics.Register(router, deps.Config.Metrics.PrometheusPath)
	}

	if deps.Files != nil {
		file.RegisterRoutes(router.Group("/files"), deps.Files)
	}
	if deps.Conversions != nil && deps.Converted != nil {
		conversion.RegisterRoutes(router.Group("/conversions"), deps.Conversions, deps.Converted)
	}

	return router
}
