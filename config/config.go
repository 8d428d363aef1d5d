package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Proxy under test
	APIKey  string // required
	BaseURL string // default: http://127.0.0.1:4096

	// Request shape
	Model     string // default: claude-sonnet-4-5
	MaxTokens int    // default: 100

	// Observability
	TraceEnabled         bool   // default: false
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:               os.Getenv("PROXY_API_KEY"),
		BaseURL:              getEnv("PROXY_BASE_URL", "http://127.0.0.1:4096"),
		Model:                getEnv("SMOKE_MODEL", "claude-sonnet-4-5"),
		TraceEnabled:         getEnv("SMOKE_TRACE", "false") == "true",
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	maxStr := getEnv("SMOKE_MAX_TOKENS", "100")
	maxTokens, err := strconv.Atoi(maxStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMOKE_MAX_TOKENS: %w", err)
	}
	cfg.MaxTokens = maxTokens

	// Validation
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PROXY_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
