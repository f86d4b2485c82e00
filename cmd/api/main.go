// Package main provides the entrypoint for the AirSight API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/api"
	"github.com/airsight/airsight/internal/api/middleware"
	"github.com/airsight/airsight/internal/auth"
	"github.com/airsight/airsight/internal/config"
	"github.com/airsight/airsight/internal/database"
	"github.com/airsight/airsight/internal/ingest"
	"github.com/airsight/airsight/internal/reading"
	"github.com/airsight/airsight/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airsight-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirSight API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize readings service with snapshot caching
	readingRepo := reading.NewPostgresRepository(pool)
	readingService := reading.NewService(reading.ServiceConfig{
		Repository: readingRepo,
		Logger:     log,
		CacheTTL:   cfg.SnapshotTTL,
	})
	log.Info().Dur("cache_ttl", cfg.SnapshotTTL).Msg("readings service initialized")

	// Initialize admin token service
	if cfg.AdminTokenKey == "" {
		cfg.AdminTokenKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default admin token key - not secure for production")
	}
	tokenService := auth.NewTokenService(auth.TokenConfig{
		SigningKey: cfg.AdminTokenKey,
	})

	// Initialize Pub/Sub publisher for on-demand ingest jobs (optional)
	var publisher *ingest.Publisher
	if cfg.PubSubProjectID != "" && cfg.IngestTopic != "" {
		publisher, err = ingest.NewPublisher(ctx, cfg.PubSubProjectID, cfg.IngestTopic, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize publisher")
		}
		defer publisher.Close()
		log.Info().Str("topic", cfg.IngestTopic).Msg("ingest publisher initialized")
	} else {
		log.Warn().Msg("Pub/Sub not configured - admin refresh will not queue ingest jobs")
	}

	routerCfg := api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		Metrics:        metrics,
		ReadingService: readingService,
		TokenService:   tokenService,
		DB:             pool,
		Retention:      cfg.Retention,
	}
	if publisher != nil {
		routerCfg.JobPublisher = publisher
	}
	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
