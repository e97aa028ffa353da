// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"outletstock/internal/infrastructure/http/v1/handlers"
	"outletstock/internal/infrastructure/http/v1/middleware"
	"outletstock/pkg/logger"
)

// RouterConfig holds the router's dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	Ledger    handlers.LedgerService
	Overrides handlers.OverrideGateway

	// History serves the override audit trail; optional.
	History handlers.OverrideHistory

	// Health lists the dependencies probed by /health/ready.
	Health map[string]handlers.Pinger

	RateLimit middleware.RateLimitConfig
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	router := gin.New()

	// order matters
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Health)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst > 0 {
		api.Use(middleware.RateLimit(cfg.RateLimit))
	}
	api.Use(middleware.RequestIdentity())

	ledgerHandler := handlers.NewLedgerHandler(cfg.Ledger)
	overrideHandler := handlers.NewOverrideHandler(cfg.Overrides, cfg.History)

	outlet := api.Group("/outlets/:outlet")
	{
		outlet.GET("/ledger", ledgerHandler.Get)
		outlet.GET("/ledger/:productId", ledgerHandler.GetProduct)
		outlet.PUT("/products/:productId/current-stock", overrideHandler.SetCurrentStock)
		outlet.GET("/overrides", overrideHandler.History)
	}

	return router
}
