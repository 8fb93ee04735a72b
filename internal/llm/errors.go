package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/helixir/paper-rank-service/internal/domain"
)

// APIError represents an error returned by a chat provider API.
type APIError struct {
	// Provider is the name of the provider (e.g., "ollama", "openai").
	Provider string
	// StatusCode is the HTTP status code returned by the API, or 0 when no
	// response was received.
	StatusCode int
	// Message is the error message from the API.
	Message string
	// Type is the error type classification from the API, if any.
	Type string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient reports whether a retry may succeed: rate limiting (429),
// server errors (5xx) and network failures (StatusCode 0).
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// Unwrap maps transient failures onto domain.ErrLLMUnavailable so callers can
// tell an unreachable model from a rejected request.
func (e *APIError) Unwrap() error {
	if e.IsTransient() {
		return domain.ErrLLMUnavailable
	}
	return nil
}

func isTransientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsTransient()
}

// withRetry calls fn until it succeeds, fails with a non-transient error, or
// maxRetries retries have been spent. The wait grows linearly with the attempt.
func withRetry[T any](ctx context.Context, provider string, maxRetries int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("%s: context cancelled during retry wait: %w", provider, ctx.Err())
			case <-time.After(delay * time.Duration(attempt)):
			}
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		if !isTransientError(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%s: exhausted %d retries: %w", provider, maxRetries, lastErr)
}
