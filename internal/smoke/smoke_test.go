package smoke_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/okhsunrog/claude-proxy-smoke/internal/mockproxy"
	"github.com/okhsunrog/claude-proxy-smoke/internal/provider/anthropic"
	"github.com/okhsunrog/claude-proxy-smoke/internal/provider/openaicompat"
	"github.com/okhsunrog/claude-proxy-smoke/internal/smoke"
)

func newRunner(out *bytes.Buffer) *smoke.Runner {
	return &smoke.Runner{
		Out:       out,
		Tracer:    otel.GetTracerProvider().Tracer("smoke-test"),
		Model:     "claude-sonnet-4-5",
		MaxTokens: 100,
	}
}

func TestRunAnthropic(t *testing.T) {
	server := httptest.NewServer(mockproxy.New("test-key").Routes())
	defer server.Close()

	var out bytes.Buffer
	runner := newRunner(&out)
	client := anthropic.New(server.URL, "test-key")

	if err := runner.RunAnthropic(context.Background(), client); err != nil {
		t.Fatalf("RunAnthropic failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Testing Anthropic Native API",
		"1. Basic message (non-streaming):",
		"Response: Hello from Anthropic API!",
		"2. Streaming message:",
		"Stream output: 1\n2\n3\n4\n5",
		"3. Count tokens:",
		"Token count:",
		"✅ Anthropic API tests completed successfully!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Usage: 0 tokens") {
		t.Error("usage count should be positive")
	}
	if strings.Contains(got, "Token count: 0 tokens") {
		t.Error("token count should be positive")
	}
}

func TestRunOpenAI(t *testing.T) {
	server := httptest.NewServer(mockproxy.New("test-key").Routes())
	defer server.Close()

	var out bytes.Buffer
	runner := newRunner(&out)
	client := openaicompat.New(server.URL, "test-key")

	if err := runner.RunOpenAI(context.Background(), client); err != nil {
		t.Fatalf("RunOpenAI failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Testing OpenAI-Compatible API",
		"1. Basic completion (non-streaming):",
		"Response: Hello from OpenAI API!",
		"2. Streaming completion:",
		"Stream output: 1\n2\n3\n4\n5",
		"✅ OpenAI API tests completed successfully!",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunAnthropic_WrongKey(t *testing.T) {
	server := httptest.NewServer(mockproxy.New("test-key").Routes())
	defer server.Close()

	var out bytes.Buffer
	runner := newRunner(&out)
	client := anthropic.New(server.URL, "wrong-key")

	err := runner.RunAnthropic(context.Background(), client)
	if err == nil {
		t.Fatal("expected error with wrong api key")
	}
	if strings.Contains(out.String(), "✅") {
		t.Error("success banner must not print after a failure")
	}
}

func TestRunOpenAI_UnreachableProxy(t *testing.T) {
	server := httptest.NewServer(mockproxy.New("test-key").Routes())
	server.Close() // nothing listens anymore

	var out bytes.Buffer
	runner := newRunner(&out)
	client := openaicompat.New(server.URL, "test-key")

	err := runner.RunOpenAI(context.Background(), client)
	if err == nil {
		t.Fatal("expected error when proxy is unreachable")
	}
	if strings.Contains(out.String(), "✅") {
		t.Error("success banner must not print after a failure")
	}
}
