// Package main provides the entrypoint for the AirSight ingest worker.
// The worker polls the AirNow API on a schedule, stores readings in
// Postgres, enforces retention, and consumes on-demand jobs from Pub/Sub.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airsight/airsight/internal/config"
	"github.com/airsight/airsight/internal/database"
	"github.com/airsight/airsight/internal/ingest"
	"github.com/airsight/airsight/internal/provider/airnow"
	"github.com/airsight/airsight/internal/reading"
	"github.com/airsight/airsight/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airsight-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirSight worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	if cfg.AirNowAPIKey == "" {
		log.Warn().Msg("AIRNOW_API_KEY not set - provider requests will be rejected upstream")
	}

	provider := airnow.NewClient(airnow.ClientConfig{
		APIKey: cfg.AirNowAPIKey,
	})

	job := ingest.NewJob(ingest.JobConfig{
		Provider:   provider,
		Repository: reading.NewPostgresRepository(pool),
		Logger:     log,
		States:     cfg.IngestStates,
	})

	scheduler := ingest.NewScheduler(ingest.SchedulerConfig{
		Job:       job,
		Logger:    log,
		Interval:  cfg.IngestInterval,
		Retention: cfg.Retention,
	})
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer scheduler.Stop()
	log.Info().
		Dur("interval", cfg.IngestInterval).
		Strs("states", cfg.IngestStates).
		Msg("ingest schedule started")

	// Consume on-demand jobs from Pub/Sub when configured
	if cfg.PubSubProjectID != "" && cfg.IngestSubscription != "" {
		subscriber, err := ingest.NewPubSubHandler(ctx, ingest.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.IngestSubscription,
			Job:              job,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Pub/Sub subscriber")
		}
		defer subscriber.Close()

		go func() {
			log.Info().Str("subscription", cfg.IngestSubscription).Msg("consuming on-demand jobs")
			if err := subscriber.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Pub/Sub receive stopped")
			}
		}()
	} else {
		log.Info().Msg("Pub/Sub not configured - running schedule only")
	}

	// Health endpoint for the container platform
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		lastRun, lastErr := job.Status()
		status := "ok"
		if lastErr != nil {
			status = "degraded"
		}
		fmt.Fprintf(w, `{"status":%q,"version":%q,"last_run":%q}`,
			status, Version, lastRun.UTC().Format(time.RFC3339))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
