package http

import (
	"context"
	"log/slog"

	"github.com/example/pickup-games/internal/application"
	"github.com/example/pickup-games/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	gameIDContextKey    contextKey = "game_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithGameID injects the game identifier resolved from the request path.
func ContextWithGameID(ctx context.Context, gameID string) context.Context {
	return context.WithValue(ctx, gameIDContextKey, gameID)
}

// GameIDFromContext extracts a game identifier previously associated with the context.
func GameIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(gameIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request-scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.WithLogger(ctx, logger)
}

// LoggerFromContext extracts a request-scoped logger if one was attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
