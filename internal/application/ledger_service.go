package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// GameStore exposes the storage operations the ledger needs. Implementations
// must commit ApplyRosterChange as one atomic unit so readers never observe
// a membership row without its matching counter update.
type GameStore interface {
	CreateGame(ctx context.Context, game Game, organizer Membership) error
	GetGame(ctx context.Context, id string) (Game, error)
	GetMembership(ctx context.Context, gameID, userID string) (Membership, error)
	ListMemberships(ctx context.Context, gameID string) ([]Membership, error)
	ApplyRosterChange(ctx context.Context, change RosterChange) error
}

// LedgerService is the sole authority for admitting and removing game
// members. It enforces the capacity invariant under concurrent joins by
// serializing all mutations per game.
type LedgerService struct {
	games  GameStore
	locks  *gameLocks
	now    func() time.Time
	logger *slog.Logger
}

// NewLedgerService constructs a ledger over the given store.
func NewLedgerService(games GameStore, now func() time.Time, logger *slog.Logger) *LedgerService {
	if now == nil {
		now = time.Now
	}
	return &LedgerService{
		games:  games,
		locks:  newGameLocks(),
		now:    now,
		logger: defaultLogger(logger),
	}
}

func (s *LedgerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LedgerService", operation, attrs...)
}

// OpenGame persists a newly validated game and admits its organizer as the
// first member. Capacity of at least two guarantees the admission succeeds.
func (s *LedgerService) OpenGame(ctx context.Context, game Game) (Membership, error) {
	if s == nil || s.games == nil {
		return Membership{}, fmt.Errorf("game store not configured")
	}

	logger := s.loggerWith(ctx, "OpenGame", "game_id", game.ID, "organizer_id", game.OrganizerID)

	organizer := Membership{
		GameID:    game.ID,
		UserID:    game.OrganizerID,
		JoinedSeq: 1,
		Role:      RoleOrganizer,
	}
	game.Status = StatusOpen
	game.Version = 0
	game.CurrentPlayers = 1

	release := s.locks.acquire(game.ID)
	defer release()

	if err := s.games.CreateGame(ctx, game, organizer); err != nil {
		logger.ErrorContext(ctx, "failed to open game", "error", err, "error_kind", ErrorKind(err))
		return Membership{}, err
	}

	logger.InfoContext(ctx, "game opened", "max_players", game.MaxPlayers)
	return organizer, nil
}

// Join admits the user to the game. Rejoining an active membership is an
// idempotent no-op returning the existing membership. The capacity check and
// the membership commit happen under the per-game lock, so at most
// MaxPlayers memberships ever exist for a game.
func (s *LedgerService) Join(ctx context.Context, gameID, userID string) (membership Membership, err error) {
	if s == nil || s.games == nil {
		err = fmt.Errorf("game store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Join", "game_id", gameID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "join rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("joined_seq", membership.JoinedSeq).InfoContext(ctx, "member admitted")
	}()

	release := s.locks.acquire(gameID)
	defer release()

	var game Game
	game, err = s.games.GetGame(ctx, gameID)
	if err != nil {
		return
	}
	if game.Status == StatusCancelled {
		err = ErrGameCancelled
		return
	}
	if violated := s.checkCapacityInvariant(ctx, game); violated != nil {
		err = violated
		return
	}

	existing, getErr := s.games.GetMembership(ctx, gameID, userID)
	if getErr == nil {
		membership = existing
		return
	}
	if !errors.Is(getErr, ErrNotFound) {
		err = getErr
		return
	}

	if game.CurrentPlayers >= game.MaxPlayers {
		err = ErrGameFull
		return
	}

	var members []Membership
	members, err = s.games.ListMemberships(ctx, gameID)
	if err != nil {
		return
	}

	membership = Membership{
		GameID:    gameID,
		UserID:    userID,
		JoinedSeq: nextJoinedSeq(members),
		Role:      RolePlayer,
	}

	updated := game
	updated.CurrentPlayers++
	updated.Version++
	updated.UpdatedAt = s.now()
	if updated.CurrentPlayers == updated.MaxPlayers {
		updated.Status = StatusFull
	}

	err = s.games.ApplyRosterChange(ctx, RosterChange{
		Game:            updated,
		ExpectedVersion: game.Version,
		Insert:          &membership,
	})
	if err != nil {
		membership = Membership{}
		return
	}
	return
}

// Leave removes the user's membership. Leaving without one is an idempotent
// no-op. When the organizer departs, the role transfers to the remaining
// member with the lowest join sequence; with nobody left the game cancels.
func (s *LedgerService) Leave(ctx context.Context, gameID, userID string) (err error) {
	if s == nil || s.games == nil {
		return fmt.Errorf("game store not configured")
	}

	logger := s.loggerWith(ctx, "Leave", "game_id", gameID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "leave failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	release := s.locks.acquire(gameID)
	defer release()

	var game Game
	game, err = s.games.GetGame(ctx, gameID)
	if err != nil {
		return
	}

	departing, getErr := s.games.GetMembership(ctx, gameID, userID)
	if errors.Is(getErr, ErrNotFound) {
		return nil
	}
	if getErr != nil {
		err = getErr
		return
	}

	// Cancelled games retain their memberships for audit; leaving one
	// changes nothing.
	if game.Status == StatusCancelled {
		return nil
	}

	updated := game
	updated.CurrentPlayers--
	updated.Version++
	updated.UpdatedAt = s.now()
	if updated.Status == StatusFull {
		updated.Status = StatusOpen
	}

	change := RosterChange{
		ExpectedVersion: game.Version,
		Remove:          &userID,
	}

	if departing.Role == RoleOrganizer {
		var members []Membership
		members, err = s.games.ListMemberships(ctx, gameID)
		if err != nil {
			return
		}
		successor := earliestOther(members, userID)
		if successor == nil {
			// Nobody is left to own the game.
			updated.Status = StatusCancelled
		} else {
			change.PromoteOrganizer = &successor.UserID
			logger = logger.With("new_organizer_id", successor.UserID)
		}
	}

	change.Game = updated
	if err = s.games.ApplyRosterChange(ctx, change); err != nil {
		return
	}

	logger.InfoContext(ctx, "member left", "current_players", updated.CurrentPlayers, "status", string(updated.Status))
	return nil
}

// Cancel transitions the game to its terminal cancelled state. Only the
// current organizer may cancel. Memberships are retained for audit.
func (s *LedgerService) Cancel(ctx context.Context, gameID, requesterID string) (err error) {
	if s == nil || s.games == nil {
		return fmt.Errorf("game store not configured")
	}

	logger := s.loggerWith(ctx, "Cancel", "game_id", gameID, "requester_id", requesterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancel rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "game cancelled")
	}()

	release := s.locks.acquire(gameID)
	defer release()

	var game Game
	game, err = s.games.GetGame(ctx, gameID)
	if err != nil {
		return
	}
	if game.Status == StatusCancelled {
		return nil
	}

	requester, getErr := s.games.GetMembership(ctx, gameID, requesterID)
	if errors.Is(getErr, ErrNotFound) || (getErr == nil && requester.Role != RoleOrganizer) {
		err = ErrNotOrganizer
		return
	}
	if getErr != nil {
		err = getErr
		return
	}

	updated := game
	updated.Status = StatusCancelled
	updated.Version++
	updated.UpdatedAt = s.now()

	err = s.games.ApplyRosterChange(ctx, RosterChange{
		Game:            updated,
		ExpectedVersion: game.Version,
	})
	return
}

// checkCapacityInvariant reports a fatal defect when the stored counter has
// escaped its bounds. This should be unreachable; it indicates the capacity
// invariant was broken by a writer outside the ledger.
func (s *LedgerService) checkCapacityInvariant(ctx context.Context, game Game) error {
	if game.CurrentPlayers >= 0 && game.CurrentPlayers <= game.MaxPlayers {
		return nil
	}
	err := fmt.Errorf("capacity invariant violated for game %s: %d players, max %d",
		game.ID, game.CurrentPlayers, game.MaxPlayers)
	s.loggerWith(ctx, "checkCapacityInvariant", "game_id", game.ID).ErrorContext(
		ctx, "capacity invariant violated",
		"error", err,
		"error_kind", "invariant_violation",
		"current_players", game.CurrentPlayers,
		"max_players", game.MaxPlayers,
	)
	return err
}

func nextJoinedSeq(members []Membership) int64 {
	var max int64
	for _, m := range members {
		if m.JoinedSeq > max {
			max = m.JoinedSeq
		}
	}
	return max + 1
}

func earliestOther(members []Membership, excludeUserID string) *Membership {
	var earliest *Membership
	for i := range members {
		m := &members[i]
		if m.UserID == excludeUserID {
			continue
		}
		if earliest == nil || m.JoinedSeq < earliest.JoinedSeq {
			earliest = m
		}
	}
	return earliest
}
