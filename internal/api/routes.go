// Package api provides the HTTP API for the Tessera server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tessera-io/tessera/internal/api/handlers"
	"github.com/tessera-io/tessera/internal/api/middleware"
	"github.com/tessera-io/tessera/internal/backup"
	"github.com/tessera-io/tessera/internal/config"
	"github.com/tessera-io/tessera/internal/db"
	"github.com/tessera-io/tessera/internal/licensing"
	"github.com/tessera-io/tessera/internal/metrics"
	"github.com/tessera-io/tessera/internal/policy"
)

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates the API router and wires every endpoint.
func NewRouter(
	cfg config.Config,
	database *db.DB,
	policies policy.Provider,
	m *metrics.Metrics,
	registry *prometheus.Registry,
	logger zerolog.Logger,
) (*Router, error) {
	if cfg.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.SecurityHeaders())
	r.Engine.Use(middleware.CORS(cfg.CORSOrigins, cfg.Environment))
	r.Engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Health and metrics endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)
	r.Engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Services
	activationSvc := licensing.NewActivationService(database, policies, logger)
	heartbeatSvc := licensing.NewHeartbeatService(database, policies, logger)
	deviceSvc := licensing.NewDeviceService(database, policies, logger)
	backupSvc := backup.NewService(database, policies, logger)

	// Device-facing API (no auth; devices identify themselves by license key
	// and device ID)
	apiV1 := r.Engine.Group("/api/v1")
	handlers.NewActivationHandler(activationSvc, m, logger).RegisterRoutes(apiV1)
	handlers.NewHeartbeatHandler(heartbeatSvc, m, logger).RegisterRoutes(apiV1)

	// Admin API (bearer token auth)
	admin := r.Engine.Group("/api/v1")
	admin.Use(middleware.AdminAuth(cfg.AdminToken, logger))
	handlers.NewDevicesHandler(deviceSvc, logger).RegisterRoutes(admin)
	handlers.NewBackupsHandler(backupSvc, m, logger).RegisterRoutes(admin)
	handlers.NewPolicyHandler(policies, logger).RegisterRoutes(admin)

	r.logger.Info().Msg("API router initialized")
	return r, nil
}
