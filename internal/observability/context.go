package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey     contextKey = "request_id"
	correlationIDKey contextKey = "correlation_id"
	clientIPKey      contextKey = "client_ip"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithCorrelationID adds a caller-supplied correlation ID to the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

// WithClientIP adds the caller's address to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext retrieves the caller's address from context.
func ClientIPFromContext(ctx context.Context) string {
	return stringValue(ctx, clientIPKey)
}

// RequestContext holds the per-request observability fields.
type RequestContext struct {
	RequestID     string
	CorrelationID string
	ClientIP      string
}

// WithRequestContext stores all fields of rc in the context.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.CorrelationID != "" {
		ctx = WithCorrelationID(ctx, rc.CorrelationID)
	}
	if rc.ClientIP != "" {
		ctx = WithClientIP(ctx, rc.ClientIP)
	}
	return ctx
}

// RequestContextFromContext extracts all request fields from ctx.
func RequestContextFromContext(ctx context.Context) RequestContext {
	return RequestContext{
		RequestID:     RequestIDFromContext(ctx),
		CorrelationID: CorrelationIDFromContext(ctx),
		ClientIP:      ClientIPFromContext(ctx),
	}
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
