package persistence

import "time"

// User represents a student account stored in persistence.
type User struct {
	ID           string
	Email        string
	University   string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Game represents a pickup game record including the denormalized roster
// fields maintained by the membership ledger.
type Game struct {
	ID             string
	Sport          string
	Location       string
	ScheduledAt    time.Time
	MaxPlayers     int
	SkillLevel     string
	Description    *string
	OrganizerID    string
	Status         string
	Version        int64
	CurrentPlayers int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Membership represents the join relationship between a user and a game.
// JoinedSeq is a per-game logical sequence number, not a wall-clock value.
type Membership struct {
	GameID    string
	UserID    string
	JoinedSeq int64
	Role      string
}

// GameFilter narrows game listing queries.
type GameFilter struct {
	Query          string
	Sport          string
	SkillLevel     string
	ScheduledAfter *time.Time
	ScheduledUntil *time.Time
}

// RosterChange captures a single membership mutation together with the
// denormalized game fields it produces. The repository commits the whole
// change as one transaction so readers never observe a membership row
// without its matching counter update.
type RosterChange struct {
	// Game carries the updated denormalized fields (CurrentPlayers, Status,
	// Version, UpdatedAt). The update is guarded by ExpectedVersion.
	Game            Game
	ExpectedVersion int64

	// Insert, when set, adds a membership row.
	Insert *Membership
	// Remove, when set, deletes the membership for this user.
	Remove *string
	// PromoteOrganizer, when set, flips the named member's role to organizer.
	PromoteOrganizer *string
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
