// Package app wires configuration, logging, the document store, the
// service layer and the HTTP router into one runnable application.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/linucb-fashion/internal/config"
	"github.com/temcen/linucb-fashion/internal/handlers"
	"github.com/temcen/linucb-fashion/internal/metrics"
	"github.com/temcen/linucb-fashion/internal/middleware"
	"github.com/temcen/linucb-fashion/internal/services"
	"github.com/temcen/linucb-fashion/internal/store"
)

type App struct {
	config    *config.Config
	logger    *logrus.Logger
	store     store.Store
	services  *services.Services
	handlers  *handlers.Handlers
	router    *gin.Engine
	collector *metrics.Collector
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	st, err := store.New(context.Background(), cfg.Store.DocumentStoreURI, cfg.Store.MaxConnections, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}
	app.store = st

	app.collector = metrics.New()
	app.services = services.New(cfg, st, app.logger)

	h, err := handlers.New(cfg, app.services, app.collector, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}
	app.handlers = h

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")
	a.store.Close()
	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))
	router.Use(middleware.Security())
	router.Use(middleware.CompressionMiddleware())
	router.Use(middleware.Version(a.config.API.CurrentVersion, a.config.API.SupportedVersions))

	// Liveness and Prometheus endpoints, outside the guarded API surface
	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// The versioned path prefix serves the same routes; the version
	// middleware resolves which protocol version the caller asked for.
	a.registerAPI(router.Group("/api"))
	a.registerAPI(router.Group("/api/v1"))

	a.router = router
}

func (a *App) registerAPI(api *gin.RouterGroup) {
	api.Use(middleware.RateLimit(a.services.RateLimit, a.collector, a.logger))
	api.Use(middleware.Guard(a.services.Guard, a.collector, a.logger))

	api.POST("/session", a.handlers.Session.Create)

	api.GET("/recommend/:sessionId", a.handlers.Recommendation.Get)
	api.POST("/recommendations/batch", a.handlers.Recommendation.GetBatch)

	api.POST("/feedback", a.handlers.Feedback.Post)
	api.POST("/feedback/batch", a.handlers.Feedback.PostBatch)
	api.GET("/feedback/status/:sessionId/:productId/:action", a.handlers.Feedback.Status)

	api.GET("/duplicate-detection/stats", a.handlers.Admin.GuardStats)
	api.POST("/duplicate-detection/reset", a.handlers.Admin.GuardReset)

	api.GET("/cache/stats", a.handlers.Admin.CacheStats)
	api.POST("/cache/clear", a.handlers.Admin.CacheClear)
	api.POST("/cache/invalidate/session/:id", a.handlers.Admin.CacheInvalidateSession)

	api.GET("/health", a.handlers.Health.Check)
	api.GET("/version", a.handlers.Health.Version)
	api.GET("/metrics", a.handlers.Health.Metrics)

	if a.config.Debug.EnableDebugRoutes {
		api.GET("/debug/score/:sessionId", a.handlers.Debug.Score)
	}
}
