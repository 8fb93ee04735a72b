package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-rank-service/internal/domain"
	"github.com/helixir/paper-rank-service/internal/observability"
)

// Operation names used in logs and metrics.
const (
	OperationRefineQuery       = "refine_query"
	OperationSummarizeAbstract = "summarize_abstract"
)

const (
	refinePrompt = "Refine the following research paper search query to be more effective and comprehensive. " +
		"Provide only the refined query, no additional text or explanation:\n\n" +
		"Original query: \"%s\"\n\nRefined query:"

	summarizePrompt = "Summarize the following research paper abstract concisely. " +
		"Provide only the summary, no additional text or explanation:\n\n" +
		"Abstract: \"%s\"\n\nSummary:"
)

// Assistant refines search queries and summarizes abstracts with a chat model.
type Assistant struct {
	client  ChatClient
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewAssistant creates an Assistant. metrics may be nil.
func NewAssistant(client ChatClient, logger zerolog.Logger, metrics *observability.Metrics) *Assistant {
	return &Assistant{
		client:  client,
		logger:  logger.With().Str("component", "llm-assistant").Logger(),
		metrics: metrics,
	}
}

// RefineQuery asks the model for a better search query. An empty model uses
// the client's default.
func (a *Assistant) RefineQuery(ctx context.Context, query, model string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", domain.NewValidationError("query", "Query is required")
	}
	return a.ask(ctx, OperationRefineQuery, model, fmt.Sprintf(refinePrompt, query))
}

// SummarizeAbstract asks the model for a concise summary of an abstract.
func (a *Assistant) SummarizeAbstract(ctx context.Context, abstract, model string) (string, error) {
	if strings.TrimSpace(abstract) == "" {
		return "", domain.NewValidationError("abstract", "Abstract is required")
	}
	return a.ask(ctx, OperationSummarizeAbstract, model, fmt.Sprintf(summarizePrompt, abstract))
}

// DefaultModel returns the model used when a request names none.
func (a *Assistant) DefaultModel() string {
	return a.client.Model()
}

func (a *Assistant) ask(ctx context.Context, operation, model, prompt string) (string, error) {
	if model == "" {
		model = a.client.Model()
	}
	logger := observability.WithLLMContext(a.logger, a.client.Provider(), model, operation)
	logger.Info().Int("prompt_length", len(prompt)).Msg("calling language model")

	start := time.Now()
	resp, err := a.client.Chat(ctx, ChatRequest{Model: model, Prompt: prompt})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		logger.Error().Err(err).Float64("duration_seconds", elapsed).Msg("language model call failed")
		if a.metrics != nil {
			a.metrics.RecordLLMRequestFailed(operation, model, errorType(err))
		}
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	text := strings.TrimSpace(resp.Content)
	logger.Info().
		Float64("duration_seconds", elapsed).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Msg("language model call completed")
	if a.metrics != nil {
		a.metrics.RecordLLMRequest(operation, model, elapsed)
	}
	return text, nil
}

func errorType(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &apiErr) && apiErr.StatusCode == 0:
		return "network"
	case errors.As(err, &apiErr) && apiErr.IsTransient():
		return "unavailable"
	case errors.As(err, &apiErr):
		return "rejected"
	default:
		return "invalid_response"
	}
}
