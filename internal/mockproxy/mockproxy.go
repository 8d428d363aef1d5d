// Package mockproxy is a stand-in for the proxy under test. It implements
// the three endpoints the smoke binaries exercise with deterministic canned
// replies, so the suite can run without a live collaborator.
package mockproxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Server struct {
	apiKey string
}

func New(apiKey string) *Server {
	return &Server{apiKey: apiKey}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"mock-proxy"}`))
	})

	r.Post("/v1/messages", s.handleMessages)
	r.Post("/v1/messages/count_tokens", s.handleCountTokens)
	r.Post("/v1/chat/completions", s.handleChatCompletions)

	return r
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

// authorized accepts the key either native-style (x-api-key) or
// compatible-style (Authorization: Bearer).
func (s *Server) authorized(r *http.Request) bool {
	if r.Header.Get("x-api-key") == s.apiKey {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.apiKey
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// replyFor derives the canned assistant text for a prompt. The counting
// prompt gets the numbers; "Say '...'" prompts get the quoted text back.
func replyFor(prompt string) string {
	if strings.Contains(prompt, "Count from 1 to 5") {
		return "1\n2\n3\n4\n5"
	}
	if i := strings.Index(prompt, "'"); i >= 0 {
		if j := strings.LastIndex(prompt, "'"); j > i {
			return prompt[i+1 : j]
		}
	}
	return "You said: " + prompt
}

func lastUserContent(msgs []message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

// estimateTokens is a crude but strictly positive byte-length heuristic.
func estimateTokens(s string) int {
	return len(s)/4 + 1
}

// fragments splits text into small pieces on rune boundaries so streamed
// output arrives in several deltas whose concatenation equals the text.
func fragments(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if cur.Len() >= 4 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSONError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req messagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt := lastUserContent(req.Messages)
	reply := replyFor(prompt)

	if req.Stream {
		s.streamMessages(w, reply)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":    "msg_" + uuid.New().String(),
		"type":  "message",
		"role":  "assistant",
		"model": req.Model,
		"content": []interface{}{
			map[string]string{"type": "text", "text": reply},
		},
		"stop_reason": "end_turn",
		"usage": map[string]int{
			"input_tokens":  estimateTokens(prompt),
			"output_tokens": estimateTokens(reply),
		},
	})
}

func (s *Server) streamMessages(w http.ResponseWriter, reply string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: message_start\ndata: {\"type\": \"message_start\"}\n\n")
	flusher.Flush()

	for _, frag := range fragments(reply) {
		data, _ := json.Marshal(map[string]interface{}{
			"type":  "content_block_delta",
			"delta": map[string]string{"type": "text_delta", "text": frag},
		})
		fmt.Fprintf(w, "event: content_block_delta\ndata: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprintf(w, "event: message_stop\ndata: {\"type\": \"message_stop\"}\n\n")
	flusher.Flush()
}

func (s *Server) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSONError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req messagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	total := estimateTokens(req.System)
	for _, m := range req.Messages {
		total += estimateTokens(m.Content)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]int{"input_tokens": total})
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSONError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt := lastUserContent(req.Messages)
	reply := replyFor(prompt)

	if req.Stream {
		s.streamChatCompletions(w, reply)
		return
	}

	promptTokens := estimateTokens(prompt)
	completionTokens := estimateTokens(reply)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     "chatcmpl-" + uuid.New().String(),
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []interface{}{
			map[string]interface{}{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": reply,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	})
}

func (s *Server) streamChatCompletions(w http.ResponseWriter, reply string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	for _, frag := range fragments(reply) {
		data, _ := json.Marshal(map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{
					"index": 0,
					"delta": map[string]string{"content": frag},
				},
			},
		})
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}
