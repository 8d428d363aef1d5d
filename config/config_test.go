package config

import (
	"os"
	"strings"
	"testing"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t, "PROXY_API_KEY")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when PROXY_API_KEY is unset")
	}
	if !strings.Contains(err.Error(), "PROXY_API_KEY") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PROXY_API_KEY", "test-key")
	clearEnv(t, "PROXY_BASE_URL", "SMOKE_MODEL", "SMOKE_MAX_TOKENS", "SMOKE_TRACE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "http://127.0.0.1:4096" {
		t.Errorf("expected default base URL, got %s", cfg.BaseURL)
	}
	if cfg.Model != "claude-sonnet-4-5" {
		t.Errorf("expected default model, got %s", cfg.Model)
	}
	if cfg.MaxTokens != 100 {
		t.Errorf("expected default max tokens 100, got %d", cfg.MaxTokens)
	}
	if cfg.TraceEnabled {
		t.Error("tracing should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PROXY_API_KEY", "test-key")
	t.Setenv("PROXY_BASE_URL", "http://10.0.0.5:9999")
	t.Setenv("SMOKE_MODEL", "claude-opus-4")
	t.Setenv("SMOKE_MAX_TOKENS", "256")
	t.Setenv("SMOKE_TRACE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "http://10.0.0.5:9999" {
		t.Errorf("expected overridden base URL, got %s", cfg.BaseURL)
	}
	if cfg.Model != "claude-opus-4" {
		t.Errorf("expected overridden model, got %s", cfg.Model)
	}
	if cfg.MaxTokens != 256 {
		t.Errorf("expected max tokens 256, got %d", cfg.MaxTokens)
	}
	if !cfg.TraceEnabled {
		t.Error("expected tracing enabled")
	}
}

func TestLoad_InvalidMaxTokens(t *testing.T) {
	t.Setenv("PROXY_API_KEY", "test-key")
	t.Setenv("SMOKE_MAX_TOKENS", "lots")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for non-numeric SMOKE_MAX_TOKENS")
	}
	if !strings.Contains(err.Error(), "SMOKE_MAX_TOKENS") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}
