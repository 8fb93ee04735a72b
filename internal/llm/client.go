// Package llm talks to chat language models for query refinement and
// abstract summaries. Two wire protocols are supported: a local Ollama daemon
// and any OpenAI-compatible chat completions API.
package llm

import (
	"context"
	"net/http"
	"time"
)

// ChatRequest is a single-turn prompt.
type ChatRequest struct {
	// Model overrides the client's default model when not empty.
	Model  string
	Prompt string
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// ChatClient sends a prompt to a language model and returns its reply.
// Implementations retry transient failures and respect context cancellation.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Provider returns the provider name (e.g., "ollama").
	Provider() string
	// Model returns the default model identifier.
	Model() string
}

// chatMessage is a message in either provider's chat format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
