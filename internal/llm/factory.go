package llm

import (
	"fmt"
	"strings"
	"time"
)

// FactoryConfig holds the parameters needed to create a ChatClient.
// It mirrors config.LLMConfig so this package does not import config.
type FactoryConfig struct {
	// Provider is "ollama" or "openai".
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// NewChatClient creates a ChatClient for the configured provider.
func NewChatClient(cfg FactoryConfig) (ChatClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
		}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
