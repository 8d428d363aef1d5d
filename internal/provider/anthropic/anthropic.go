package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/okhsunrog/claude-proxy-smoke/internal/provider"
)

// Client speaks the native Anthropic Messages protocol against the proxy
// under test. The base URL is the proxy root, without the /v1 prefix.
type Client struct {
	apiKey  string
	baseURL string
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Content []anthropicContent `json:"content"`
	Model   string             `json:"model"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type countTokensRequest struct {
	Model    string             `json:"model"`
	System   string             `json:"system,omitempty"`
	Messages []anthropicMessage `json:"messages"`
}

type countTokensResponse struct {
	InputTokens int `json:"input_tokens"`
}

type anthropicStreamEvent struct {
	Type  string          `json:"type"`
	Delta anthropicDelta  `json:"delta,omitempty"`
	Error *anthropicError `json:"error,omitempty"`
}

type anthropicDelta struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) newRequest(ctx context.Context, path string, body []byte) (*http.Request, error) {
	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	return httpReq, nil
}

func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body, err := json.Marshal(c.mapRequest(req))
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, "/v1/messages", body)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var anthropicResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		return nil, err
	}

	if len(anthropicResp.Content) == 0 {
		return nil, fmt.Errorf("anthropic api returned no content")
	}

	return &provider.Response{
		ID:           anthropicResp.ID,
		Content:      anthropicResp.Content[0].Text,
		InputTokens:  anthropicResp.Usage.InputTokens,
		OutputTokens: anthropicResp.Usage.OutputTokens,
		Model:        anthropicResp.Model,
	}, nil
}

func (c *Client) mapRequest(req *provider.Request) anthropicRequest {
	var system string
	var messages []anthropicMessage

	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, anthropicMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return anthropicRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
		Stream:    req.Stream,
	}
}

func (c *Client) CompleteStream(ctx context.Context, req *provider.Request) (<-chan *provider.Chunk, error) {
	anthropicReq := c.mapRequest(req)
	anthropicReq.Stream = true
	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, "/v1/messages", body)
	if err != nil {
		return nil, err
	}

	ch := make(chan *provider.Chunk)

	go func() {
		defer close(ch)

		resp, err := http.DefaultClient.Do(httpReq)
		if err != nil {
			select {
			case ch <- &provider.Chunk{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			select {
			case ch <- &provider.Chunk{Err: fmt.Errorf("anthropic api error (status %d): %s", resp.StatusCode, string(respBody))}:
			case <-ctx.Done():
			}
			return
		}

		reader := bufio.NewReader(resp.Body)
		var currentEvent string

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					select {
					case ch <- &provider.Chunk{Done: true}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case ch <- &provider.Chunk{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, "event: ") {
				currentEvent = strings.TrimPrefix(line, "event: ")
				continue
			}

			if strings.HasPrefix(line, "data: ") {
				data := strings.TrimPrefix(line, "data: ")

				switch currentEvent {
				case "content_block_delta":
					var event anthropicStreamEvent
					if err := json.Unmarshal([]byte(data), &event); err != nil {
						continue
					}
					if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
						select {
						case ch <- &provider.Chunk{Delta: event.Delta.Text}:
						case <-ctx.Done():
							return
						}
					}
				case "message_stop":
					select {
					case ch <- &provider.Chunk{Done: true}:
					case <-ctx.Done():
					}
					return
				case "error":
					var event anthropicStreamEvent
					if err := json.Unmarshal([]byte(data), &event); err == nil && event.Error != nil {
						select {
						case ch <- &provider.Chunk{Err: fmt.Errorf("anthropic stream error: %s", event.Error.Message)}:
						case <-ctx.Done():
						}
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

func (c *Client) CountTokens(ctx context.Context, req *provider.Request) (*provider.TokenCount, error) {
	mapped := c.mapRequest(req)
	body, err := json.Marshal(countTokensRequest{
		Model:    mapped.Model,
		System:   mapped.System,
		Messages: mapped.Messages,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, "/v1/messages/count_tokens", body)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var countResp countTokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return nil, err
	}

	return &provider.TokenCount{InputTokens: countResp.InputTokens}, nil
}

func (c *Client) Name() string {
	return "anthropic"
}
