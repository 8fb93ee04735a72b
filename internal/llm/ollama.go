package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default values for the Ollama client.
const (
	defaultOllamaBaseURL    = "http://localhost:11434"
	defaultOllamaModel      = "gemma:2b"
	defaultOllamaRetryDelay = time.Second
)

// OllamaConfig holds the parameters needed to create an Ollama client.
type OllamaConfig struct {
	// BaseURL is the daemon address (empty means http://localhost:11434).
	BaseURL string
	// Model is the default model (empty means gemma:2b).
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// OllamaClient implements ChatClient against the Ollama /api/chat endpoint
// with streaming turned off.
type OllamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
	maxRetries  int
	retryDelay  time.Duration
}

var _ ChatClient = (*OllamaClient)(nil)

// NewOllamaClient creates a new Ollama chat client.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultOllamaRetryDelay
	}

	return &OllamaClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}
}

// Chat sends the prompt as a single user message.
func (c *OllamaClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body := ollamaChatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
		Stream:   false,
		Options:  ollamaOptions{Temperature: c.temperature},
	}

	return withRetry(ctx, "ollama", c.maxRetries, c.retryDelay, func() (*ChatResponse, error) {
		return c.doRequest(ctx, body)
	})
}

// Provider returns the name of the provider.
func (c *OllamaClient) Provider() string {
	return "ollama"
}

// Model returns the default model.
func (c *OllamaClient) Model() string {
	return c.model
}

func (c *OllamaClient) doRequest(ctx context.Context, chatReq ollamaChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ollama: request failed: %w", ctx.Err())
		}
		return nil, &APIError{Provider: "ollama", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("ollama: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var errResp ollamaErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
		return nil, apiErr
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("ollama: failed to unmarshal response: %w", err)
	}

	return &ChatResponse{
		Content:      chatResp.Message.Content,
		Model:        chatReq.Model,
		InputTokens:  chatResp.PromptEvalCount,
		OutputTokens: chatResp.EvalCount,
	}, nil
}
