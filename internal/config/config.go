// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds configuration shared by the API server and the worker.
type Config struct {
	// Environment is one of development, staging, production.
	Environment string `validate:"required,oneof=development staging production"`

	// Port the HTTP server listens on.
	Port string `validate:"required,numeric"`

	// SnapshotTTL is how long the readings snapshot stays fresh.
	SnapshotTTL time.Duration `validate:"min=1s,max=1h"`

	// IngestInterval is how often the worker polls the provider.
	IngestInterval time.Duration `validate:"min=1m,max=24h"`

	// IngestStates are the 2-letter state codes the worker ingests.
	IngestStates []string `validate:"dive,len=2"`

	// Retention is how long readings are kept before purge.
	Retention time.Duration `validate:"min=1h"`

	// AirNowAPIKey authenticates against the EPA AirNow API.
	AirNowAPIKey string

	// AdminTokenKey signs and verifies admin service tokens.
	AdminTokenKey string

	// PubSubProjectID and IngestSubscription configure on-demand ingest
	// triggers; empty disables the subscriber.
	PubSubProjectID    string
	IngestSubscription string
	IngestTopic        string

	// OTLPEndpoint and TelemetryEnabled configure OpenTelemetry export.
	OTLPEndpoint     string
	TelemetryEnabled bool
}

// Load reads configuration from the environment, with a .env file as a
// convenience for local development.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	snapshotTTL, err := parseDuration("SNAPSHOT_TTL", "60s")
	if err != nil {
		return nil, err
	}
	ingestInterval, err := parseDuration("INGEST_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	retention, err := parseDuration("READINGS_RETENTION", "168h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:        getEnvOrDefault("APP_ENV", "development"),
		Port:               getEnvOrDefault("APP_PORT", "8080"),
		SnapshotTTL:        snapshotTTL,
		IngestInterval:     ingestInterval,
		IngestStates:       splitCSV(getEnvOrDefault("INGEST_STATES", "CA,TX,NY,WA,AZ")),
		Retention:          retention,
		AirNowAPIKey:       os.Getenv("AIRNOW_API_KEY"),
		AdminTokenKey:      os.Getenv("ADMIN_TOKEN_KEY"),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		IngestSubscription: os.Getenv("INGEST_SUBSCRIPTION"),
		IngestTopic:        os.Getenv("INGEST_TOPIC"),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled:   os.Getenv("OTEL_ENABLED") == "true",
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	raw := getEnvOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnvInt reads an integer from the environment with a default.
func GetEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
