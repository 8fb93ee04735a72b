// Package papersources provides clients for searching academic paper databases.
package papersources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket rate limiter for controlling request rates
// to external APIs. It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
// ratePerSecond is the sustained rate of requests per second.
// burst is the maximum number of tokens that can be consumed at once.
//
// Example configurations:
//   - PubMed without an API key: NewRateLimiter(3, 3)
//   - Scholar scraping: NewRateLimiter(0.5, 1)
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow returns true if a request is allowed without waiting.
// It consumes one token if allowed.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Rate returns the current sustained rate in requests per second.
func (r *RateLimiter) Rate() float64 {
	return float64(r.limiter.Limit())
}

// SetRate updates the rate limit while preserving the current burst size.
func (r *RateLimiter) SetRate(ratePerSecond float64) {
	r.limiter.SetLimit(rate.Limit(ratePerSecond))
}

// Backoff halves the current rate, never going below floor. A limiter already
// at or below floor is left unchanged. It is called when an upstream API
// answers 429.
func (r *RateLimiter) Backoff(floor float64) {
	current := r.Rate()
	if current <= floor {
		return
	}
	next := current / 2
	if next < floor {
		next = floor
	}
	r.SetRate(next)
}

// Tokens returns the current number of available tokens.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
