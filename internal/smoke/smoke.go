// Package smoke drives the request sequences the smoke binaries print for
// manual inspection. Output format matches the proxy's original validation
// scripts so existing eyeballs and greps keep working.
package smoke

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/okhsunrog/claude-proxy-smoke/internal/provider"
)

type Runner struct {
	Out       io.Writer
	Tracer    trace.Tracer
	Model     string
	MaxTokens int
}

func (r *Runner) banner(title string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(r.Out, "%s\n%s\n%s\n", line, title, line)
}

func (r *Runner) startSpan(ctx context.Context, name, runID string) (context.Context, trace.Span) {
	ctx, span := r.Tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("request_id", runID),
		attribute.String("model", r.Model),
	)
	return ctx, span
}

func (r *Runner) userRequest(prompt string, stream bool) *provider.Request {
	return &provider.Request{
		Model:     r.Model,
		MaxTokens: r.MaxTokens,
		Stream:    stream,
		Messages: []provider.Message{
			{Role: "user", Content: prompt},
		},
	}
}

// consumeStream prints each fragment as it arrives; nothing is buffered
// across chunks. The first chunk error aborts the stream.
func (r *Runner) consumeStream(ch <-chan *provider.Chunk) error {
	fmt.Fprintf(r.Out, "Stream output: ")
	for chunk := range ch {
		if chunk.Err != nil {
			return chunk.Err
		}
		if chunk.Done {
			continue
		}
		fmt.Fprint(r.Out, chunk.Delta)
	}
	fmt.Fprintf(r.Out, "\n")
	return nil
}

// RunAnthropic exercises the proxy's native Messages API: one non-streaming
// message, one streaming message, and one token count. The first error is
// returned as-is; no step runs after a failure.
func (r *Runner) RunAnthropic(ctx context.Context, client provider.NativeClient) error {
	r.banner("Testing Anthropic Native API")
	runID := uuid.New().String()

	fmt.Fprintf(r.Out, "\n1. Basic message (non-streaming):\n")
	stepCtx, span := r.startSpan(ctx, "smoke.messages", runID)
	resp, err := client.Complete(stepCtx, r.userRequest("Say 'Hello from Anthropic API!' and nothing else.", false))
	span.End()
	if err != nil {
		return fmt.Errorf("basic message: %w", err)
	}
	fmt.Fprintf(r.Out, "Response: %s\n", resp.Content)
	fmt.Fprintf(r.Out, "Usage: %d tokens\n", resp.InputTokens+resp.OutputTokens)

	fmt.Fprintf(r.Out, "\n2. Streaming message:\n")
	stepCtx, span = r.startSpan(ctx, "smoke.messages_stream", runID)
	ch, err := client.CompleteStream(stepCtx, r.userRequest("Count from 1 to 5, one number per line.", true))
	if err != nil {
		span.End()
		return fmt.Errorf("streaming message: %w", err)
	}
	err = r.consumeStream(ch)
	span.End()
	if err != nil {
		return fmt.Errorf("streaming message: %w", err)
	}

	fmt.Fprintf(r.Out, "\n3. Count tokens:\n")
	stepCtx, span = r.startSpan(ctx, "smoke.count_tokens", runID)
	count, err := client.CountTokens(stepCtx, r.userRequest("Hello, how are you today?", false))
	span.End()
	if err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}
	fmt.Fprintf(r.Out, "Token count: %d tokens\n", count.InputTokens)

	fmt.Fprintf(r.Out, "\n✅ Anthropic API tests completed successfully!\n")
	return nil
}

// RunOpenAI exercises the proxy's OpenAI-compatible chat endpoint: one
// non-streaming completion and one streaming completion.
func (r *Runner) RunOpenAI(ctx context.Context, client provider.Client) error {
	r.banner("Testing OpenAI-Compatible API")
	runID := uuid.New().String()

	fmt.Fprintf(r.Out, "\n1. Basic completion (non-streaming):\n")
	stepCtx, span := r.startSpan(ctx, "smoke.chat_completions", runID)
	resp, err := client.Complete(stepCtx, r.userRequest("Say 'Hello from OpenAI API!' and nothing else.", false))
	span.End()
	if err != nil {
		return fmt.Errorf("basic completion: %w", err)
	}
	fmt.Fprintf(r.Out, "Response: %s\n", resp.Content)
	fmt.Fprintf(r.Out, "Usage: %d tokens\n", resp.InputTokens+resp.OutputTokens)

	fmt.Fprintf(r.Out, "\n2. Streaming completion:\n")
	stepCtx, span = r.startSpan(ctx, "smoke.chat_completions_stream", runID)
	ch, err := client.CompleteStream(stepCtx, r.userRequest("Count from 1 to 5, one number per line.", true))
	if err != nil {
		span.End()
		return fmt.Errorf("streaming completion: %w", err)
	}
	err = r.consumeStream(ch)
	span.End()
	if err != nil {
		return fmt.Errorf("streaming completion: %w", err)
	}

	fmt.Fprintf(r.Out, "\n✅ OpenAI API tests completed successfully!\n")
	return nil
}
