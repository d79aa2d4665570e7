// Package logging threads a request-scoped slog logger through context so the
// HTTP layer and the domain services attach their attributes to the same
// request line.
package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger derives a context carrying the logger for downstream handlers
// and services. A nil logger leaves the context untouched.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached by WithLogger, or nil when the
// request carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}

// Resolve picks the request logger when present, then the supplied fallback,
// then the process default. Handlers and services call it at the top of every
// operation.
func Resolve(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
