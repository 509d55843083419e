package logger

import "context"

type contextKey string

const (
	loggerKey    contextKey = "regdesk.logger"
	requestIDKey contextKey = "regdesk.request_id"
	runIDKey     contextKey = "regdesk.run_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID tags the context with the ID of one backend call.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithRunID tags the context with the ID of one CLI invocation. Every
// backend call made by that invocation shares it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext extracts the run ID from context.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// Enrich adds the run and request IDs carried by ctx to l.
func Enrich(ctx context.Context, l Logger) Logger {
	if id := RunIDFromContext(ctx); id != "" {
		l = l.With("run_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With("request_id", id)
	}
	return l
}

// L returns the context's logger enriched with its IDs.
func L(ctx context.Context) Logger {
	return Enrich(ctx, FromContext(ctx))
}
