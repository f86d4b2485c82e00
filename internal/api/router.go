// Package api provides the HTTP API for AirSight.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/api/handler"
	"github.com/airsight/airsight/internal/api/middleware"
	"github.com/airsight/airsight/internal/auth"
	"github.com/airsight/airsight/internal/reading"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version        string
	BuildTime      string
	Logger         zerolog.Logger
	Metrics        *middleware.Metrics
	ReadingService *reading.Service
	TokenService   *auth.TokenService
	DB             handler.Pinger
	JobPublisher   handler.JobPublisher
	Retention      time.Duration
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing()) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	dashboardHandler := handler.NewDashboardHandler(cfg.ReadingService, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler(cfg.ReadingService, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.ReadingService, cfg.JobPublisher, cfg.Retention, cfg.Logger)

	adminAuth := middleware.AdminAuth(cfg.TokenService)

	adminRateLimit := middleware.RateLimitByIP(middleware.AdminRateLimit)       // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(adminAuth).Get("/status", opsHandler.SystemStatus)
		})

		// Dashboard endpoints (public) - standard rate limiting
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/readings", dashboardHandler.ListReadings)
			r.Get("/summary", dashboardHandler.Summary)
			r.Get("/rankings", dashboardHandler.Rankings)
			r.Get("/timeseries", dashboardHandler.TimeSeries)
			r.Get("/distribution", dashboardHandler.Distribution)
			r.Get("/overview", dashboardHandler.Overview)
			r.Get("/map", dashboardHandler.Map)
			r.Get("/metadata/enums", metadataHandler.Enums)
		})

		// Admin endpoints (authenticated) - strict rate limiting
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminRateLimit)
			r.Use(adminAuth)
			r.Post("/refresh", adminHandler.Refresh)
			r.Post("/purge", adminHandler.Purge)
		})
	})

	return r
}
