package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/pickup-games/internal/application"
	"github.com/example/pickup-games/internal/persistence"
)

var (
	userCounter    uint64
	gameCounter    uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic student account that can be
// materialised for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	University   string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@state.edu", id),
		University:   "State University",
		DisplayName:  fmt.Sprintf("Student %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserUniversity overrides the generated university name.
func WithUserUniversity(name string) UserOption {
	return func(f *UserFixture) {
		f.University = name
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		University:  f.University,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		University:   f.University,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ----------------------------- Game fixtures -----------------------------

// GameFixture represents a deterministic pickup game record.
type GameFixture struct {
	ID             string
	Sport          string
	Location       string
	ScheduledAt    time.Time
	MaxPlayers     int
	SkillLevel     string
	Description    string
	OrganizerID    string
	Status         application.GameStatus
	Version        int64
	CurrentPlayers int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GameOption configures the generated game fixture.
type GameOption func(*GameFixture)

// NewGameFixture returns a deterministic game fixture with optional overrides.
// The generated game is open, scheduled in the fixture future, and holds one
// roster spot for its organizer.
func NewGameFixture(opts ...GameOption) GameFixture {
	idx := atomic.AddUint64(&gameCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := GameFixture{
		ID:             fmt.Sprintf("game-%03d", idx),
		Sport:          "Basketball",
		Location:       "Main Gym",
		ScheduledAt:    referenceTime.Add(24*time.Hour + time.Duration(idx)*time.Hour),
		MaxPlayers:     10,
		SkillLevel:     "All Levels",
		OrganizerID:    fmt.Sprintf("organizer-%03d", idx),
		Status:         application.StatusOpen,
		Version:        0,
		CurrentPlayers: 1,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithGameID overrides the generated game ID.
func WithGameID(id string) GameOption {
	return func(f *GameFixture) {
		f.ID = id
	}
}

// WithGameSport overrides the sport.
func WithGameSport(sport string) GameOption {
	return func(f *GameFixture) {
		f.Sport = sport
	}
}

// WithGameLocation overrides the location.
func WithGameLocation(location string) GameOption {
	return func(f *GameFixture) {
		f.Location = location
	}
}

// WithGameScheduledAt overrides the scheduled time.
func WithGameScheduledAt(t time.Time) GameOption {
	return func(f *GameFixture) {
		f.ScheduledAt = t
	}
}

// WithGameMaxPlayers overrides the capacity.
func WithGameMaxPlayers(n int) GameOption {
	return func(f *GameFixture) {
		f.MaxPlayers = n
	}
}

// WithGameSkillLevel overrides the skill level.
func WithGameSkillLevel(level string) GameOption {
	return func(f *GameFixture) {
		f.SkillLevel = level
	}
}

// WithGameOrganizer overrides the organizer user ID.
func WithGameOrganizer(userID string) GameOption {
	return func(f *GameFixture) {
		f.OrganizerID = userID
	}
}

// WithGameStatus overrides the lifecycle status.
func WithGameStatus(status application.GameStatus) GameOption {
	return func(f *GameFixture) {
		f.Status = status
	}
}

// WithGameRoster overrides the denormalized roster counters.
func WithGameRoster(currentPlayers int, version int64) GameOption {
	return func(f *GameFixture) {
		f.CurrentPlayers = currentPlayers
		f.Version = version
	}
}

// Application returns the fixture as an application.Game value.
func (f GameFixture) Application() application.Game {
	return application.Game{
		ID:             f.ID,
		Sport:          f.Sport,
		Location:       f.Location,
		ScheduledAt:    f.ScheduledAt,
		MaxPlayers:     f.MaxPlayers,
		SkillLevel:     f.SkillLevel,
		Description:    f.Description,
		OrganizerID:    f.OrganizerID,
		Status:         f.Status,
		Version:        f.Version,
		CurrentPlayers: f.CurrentPlayers,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Game value.
func (f GameFixture) Persistence() persistence.Game {
	var description *string
	if f.Description != "" {
		d := f.Description
		description = &d
	}
	return persistence.Game{
		ID:             f.ID,
		Sport:          f.Sport,
		Location:       f.Location,
		ScheduledAt:    f.ScheduledAt,
		MaxPlayers:     f.MaxPlayers,
		SkillLevel:     f.SkillLevel,
		Description:    description,
		OrganizerID:    f.OrganizerID,
		Status:         string(f.Status),
		Version:        f.Version,
		CurrentPlayers: f.CurrentPlayers,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// OrganizerMembership returns the organizer's roster row for the fixture.
func (f GameFixture) OrganizerMembership() persistence.Membership {
	return persistence.Membership{
		GameID:    f.ID,
		UserID:    f.OrganizerID,
		JoinedSeq: 1,
		Role:      string(application.RoleOrganizer),
	}
}

// --------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional
// overrides. The session expires 24 hours after the reference time.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    fmt.Sprintf("user-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: created.Add(24 * time.Hour),
		CreatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionUser overrides the session owner.
func WithSessionUser(userID string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = userID
	}
}

// WithSessionToken overrides the session token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt overrides the expiry instant.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt marks the session as revoked at the given instant.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.RevokedAt = &t
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
		RevokedAt: f.RevokedAt,
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
		RevokedAt: f.RevokedAt,
	}
}
