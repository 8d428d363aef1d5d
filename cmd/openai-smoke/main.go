package main

import (
	"context"
	"log"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/okhsunrog/claude-proxy-smoke/config"
	"github.com/okhsunrog/claude-proxy-smoke/internal/provider/openaicompat"
	"github.com/okhsunrog/claude-proxy-smoke/internal/smoke"
	"github.com/okhsunrog/claude-proxy-smoke/internal/telemetry"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Init telemetry (opt-in; spans are no-ops otherwise)
	if cfg.TraceEnabled {
		shutdownTracer, err := telemetry.InitTracer("claude-proxy-smoke", cfg)
		if err != nil {
			log.Fatalf("failed to init tracer: %v", err)
		}
		defer shutdownTracer()
	}

	// 3. Run the OpenAI-compatible sequence
	client := openaicompat.New(cfg.BaseURL, cfg.APIKey)
	runner := &smoke.Runner{
		Out:       os.Stdout,
		Tracer:    otel.GetTracerProvider().Tracer("claude-proxy-smoke"),
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	}

	if err := runner.RunOpenAI(context.Background(), client); err != nil {
		log.Fatalf("openai smoke test failed: %v", err)
	}
}
