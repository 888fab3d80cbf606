package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// TripIDKey is the context key for trip ID
	TripIDKey ContextKey = "trip_id"
)

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithTripID adds a trip ID to the context
func WithTripID(ctx context.Context, tripID string) context.Context {
	return context.WithValue(ctx, TripIDKey, tripID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetTripID retrieves the trip ID from the context
func GetTripID(ctx context.Context) string {
	if tripID, ok := ctx.Value(TripIDKey).(string); ok {
		return tripID
	}
	return ""
}

// NewRequestContext creates a new context for a request with a new trace ID
func NewRequestContext(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// LoggerFromContext returns a logger enriched with the context's trace
// and trip identifiers.
func LoggerFromContext(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	logCtx := base.With()
	if traceID := GetTraceID(ctx); traceID != "" {
		logCtx = logCtx.Str("trace_id", traceID)
	}
	if tripID := GetTripID(ctx); tripID != "" {
		logCtx = logCtx.Str("trip_id", tripID)
	}
	return logCtx.Logger()
}
