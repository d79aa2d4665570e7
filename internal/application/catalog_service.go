package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

const (
	minGamePlayers = 2
	maxGamePlayers = 50
)

// UserDirectory exposes user lookups for roster enrichment.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// rosterAuthority is the slice of the ledger the catalog depends on; the
// ledger alone decides membership-affecting writes.
type rosterAuthority interface {
	OpenGame(ctx context.Context, game Game) (Membership, error)
	Cancel(ctx context.Context, gameID, requesterID string) error
}

// CatalogService owns the canonical game records: validated creation, read
// snapshots, and organizer-gated cancellation.
type CatalogService struct {
	games       GameStore
	users       UserDirectory
	ledger      rosterAuthority
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCatalogService wires dependencies for catalog operations.
func NewCatalogService(games GameStore, users UserDirectory, ledger rosterAuthority, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CatalogService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{
		games:       games,
		users:       users,
		ledger:      ledger,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CatalogService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CatalogService", operation, attrs...)
}

// CreateGame validates the input and persists a new open game with its
// organizer enrolled as the first member.
func (s *CatalogService) CreateGame(ctx context.Context, params CreateGameParams) (game Game, err error) {
	if s == nil {
		err = fmt.Errorf("CatalogService is nil")
		return
	}
	if s.ledger == nil {
		err = fmt.Errorf("ledger not configured")
		return
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "CreateGame", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create game", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("game_id", game.ID).InfoContext(ctx, "game created", "sport", game.Sport)
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := s.validateGameInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	game = Game{
		ID:          s.idGenerator(),
		Sport:       params.Input.Sport,
		Location:    strings.TrimSpace(params.Input.Location),
		ScheduledAt: params.Input.ScheduledAt,
		MaxPlayers:  params.Input.MaxPlayers,
		SkillLevel:  params.Input.SkillLevel,
		Description: strings.TrimSpace(params.Input.Description),
		OrganizerID: principal.UserID,
		Status:      StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Capacity of at least two guarantees the organizer admission succeeds.
	if _, err = s.ledger.OpenGame(ctx, game); err != nil {
		game = Game{}
		return
	}
	game.CurrentPlayers = 1
	return
}

// GetGame returns the current snapshot of a game together with its roster
// ordered by join sequence.
func (s *CatalogService) GetGame(ctx context.Context, gameID string) (detail GameDetail, err error) {
	if s == nil || s.games == nil {
		err = fmt.Errorf("game store not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetGame", "game_id", gameID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get game", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	detail.Game, err = s.games.GetGame(ctx, gameID)
	if err != nil {
		return
	}

	var members []Membership
	members, err = s.games.ListMemberships(ctx, gameID)
	if err != nil {
		return
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedSeq < members[j].JoinedSeq })

	detail.Roster = make([]RosterEntry, 0, len(members))
	for _, m := range members {
		entry := RosterEntry{Membership: m}
		if s.users != nil {
			user, userErr := s.users.GetUser(ctx, m.UserID)
			if userErr != nil && !errors.Is(userErr, ErrNotFound) {
				err = userErr
				return
			}
			entry.DisplayName = user.DisplayName
		}
		detail.Roster = append(detail.Roster, entry)
	}
	return
}

// CancelGame transitions the game to cancelled when requested by its
// organizer. The ledger serializes the write with concurrent joins/leaves.
func (s *CatalogService) CancelGame(ctx context.Context, principal Principal, gameID string) error {
	if s == nil || s.ledger == nil {
		return fmt.Errorf("ledger not configured")
	}
	if principal.UserID == "" {
		return ErrUnauthorized
	}
	return s.ledger.Cancel(ctx, gameID, principal.UserID)
}

func (s *CatalogService) validateGameInput(input GameInput) *ValidationError {
	vErr := &ValidationError{}

	if !ValidSport(input.Sport) {
		vErr.add("sport", "sport must be one of the supported sports")
	}
	if !ValidSkillLevel(input.SkillLevel) {
		vErr.add("skillLevel", "skill level must be one of the supported levels")
	}
	if strings.TrimSpace(input.Location) == "" {
		vErr.add("location", "location is required")
	}
	if input.MaxPlayers < minGamePlayers || input.MaxPlayers > maxGamePlayers {
		vErr.add("maxPlayers", fmt.Sprintf("max players must be between %d and %d", minGamePlayers, maxGamePlayers))
	}
	if input.ScheduledAt.IsZero() {
		vErr.add("scheduledAt", "scheduled time is required")
	} else if !input.ScheduledAt.After(s.now()) {
		vErr.add("scheduledAt", "scheduled time must be in the future")
	}

	return vErr
}
