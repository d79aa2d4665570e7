package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
}

// GameStatus tracks the lifecycle of a game. Cancelled is terminal.
type GameStatus string

const (
	StatusOpen      GameStatus = "open"
	StatusFull      GameStatus = "full"
	StatusCancelled GameStatus = "cancelled"
)

// MembershipRole distinguishes the organizer from regular players.
type MembershipRole string

const (
	RoleOrganizer MembershipRole = "organizer"
	RolePlayer    MembershipRole = "player"
)

// Sports is the closed set of sports a game may be created for.
var Sports = []string{
	"Basketball",
	"Soccer",
	"Volleyball",
	"Tennis",
	"Ultimate Frisbee",
	"Flag Football",
	"Spikeball",
	"Badminton",
}

// SkillLevels is the closed set of accepted skill levels.
var SkillLevels = []string{"Beginner", "Intermediate", "Advanced", "All Levels"}

// ValidSport reports whether the value belongs to the sports set.
func ValidSport(value string) bool {
	for _, sport := range Sports {
		if sport == value {
			return true
		}
	}
	return false
}

// ValidSkillLevel reports whether the value belongs to the skill level set.
func ValidSkillLevel(value string) bool {
	for _, level := range SkillLevels {
		if level == value {
			return true
		}
	}
	return false
}

// User represents a student account exposed by the application services.
type User struct {
	ID          string
	Email       string
	University  string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Game represents a pickup game including the denormalized roster fields.
type Game struct {
	ID             string
	Sport          string
	Location       string
	ScheduledAt    time.Time
	MaxPlayers     int
	SkillLevel     string
	Description    string
	OrganizerID    string
	Status         GameStatus
	Version        int64
	CurrentPlayers int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Membership binds a user to a game. JoinedSeq is a per-game logical
// sequence used to break ties deterministically, not a wall-clock value.
type Membership struct {
	GameID    string
	UserID    string
	JoinedSeq int64
	Role      MembershipRole
}

// RosterEntry is a roster row enriched with the member's display name.
type RosterEntry struct {
	Membership
	DisplayName string
}

// GameDetail is a game snapshot together with its ordered roster.
type GameDetail struct {
	Game   Game
	Roster []RosterEntry
}

// GameInput captures caller provided fields for game creation.
type GameInput struct {
	Sport       string
	Location    string
	ScheduledAt time.Time
	MaxPlayers  int
	SkillLevel  string
	Description string
}

// CreateGameParams wraps the data required to create a game.
type CreateGameParams struct {
	Principal Principal
	Input     GameInput
}

// SignUpParams captures the data required to register an account.
type SignUpParams struct {
	Email           string
	Password        string
	ConfirmPassword string
	University      string
	DisplayName     string
}

// SignInParams captures the data required to authenticate.
type SignInParams struct {
	Email    string
	Password string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SignInResult captures the outcome of a successful authentication.
type SignInResult struct {
	User    User
	Session Session
}

// SearchParams narrows game listings. Query matches sport or location as a
// case-insensitive substring; the remaining fields filter exactly.
type SearchParams struct {
	Query          string
	Sport          string
	SkillLevel     string
	ScheduledAfter *time.Time
	ScheduledUntil *time.Time
}

// RosterChange captures a single roster mutation with the denormalized game
// fields it produces. The store commits it atomically, guarded by
// ExpectedVersion.
type RosterChange struct {
	Game             Game
	ExpectedVersion  int64
	Insert           *Membership
	Remove           *string
	PromoteOrganizer *string
}
