package logger

import (
	"context"
	"log/slog"
)

// contextKey is private so no other package can collide with our entry.
type contextKey struct{}

// WithContext returns a context carrying the given logger. Interceptors use
// it to hand request-scoped loggers to handlers.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext retrieves the request-scoped logger, falling back to
// slog.Default() so callers never receive nil.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
