package provider

import (
	"context"
)

type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int
	Stream    bool
}

type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

type Response struct {
	ID           string
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

type Chunk struct {
	Delta string
	Done  bool
	Err   error
}

type TokenCount struct {
	InputTokens int
}

// Client covers the operations both proxy protocols expose.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	CompleteStream(ctx context.Context, req *Request) (<-chan *Chunk, error)
	Name() string
}

// NativeClient adds the token-count endpoint, which only the native
// Messages protocol serves.
type NativeClient interface {
	Client
	CountTokens(ctx context.Context, req *Request) (*TokenCount, error)
}
