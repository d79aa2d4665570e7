package persistence

import (
	"context"
	"time"
)

// UserRepository exposes account storage operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// GameRepository stores game records and their memberships.
type GameRepository interface {
	// CreateGame inserts the game together with its organizer membership in
	// one transaction.
	CreateGame(ctx context.Context, game Game, organizer Membership) error
	GetGame(ctx context.Context, id string) (Game, error)
	ListGames(ctx context.Context, filter GameFilter) ([]Game, error)
	GetMembership(ctx context.Context, gameID, userID string) (Membership, error)
	ListMemberships(ctx context.Context, gameID string) ([]Membership, error)
	// ApplyRosterChange commits a membership mutation and the denormalized
	// game update atomically. Returns ErrVersionConflict when the stored
	// version differs from RosterChange.ExpectedVersion.
	ApplyRosterChange(ctx context.Context, change RosterChange) error
	// RosterRevision reports a counter that advances on every game creation
	// or roster mutation. Read-side projections use it to detect staleness.
	RosterRevision(ctx context.Context) (int64, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
