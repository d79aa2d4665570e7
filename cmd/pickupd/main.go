package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/pickup-games/internal/application"
	"github.com/example/pickup-games/internal/config"
	httptransport "github.com/example/pickup-games/internal/http"
	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	users := newUserStoreAdapter(sqlite.NewUserRepository(db), now)
	games := newGameStoreAdapter(sqlite.NewGameRepository(db))
	sessions := newSessionRepositoryAdapter(sqlite.NewSessionRepository(db))

	identity := application.NewIdentityService(application.IdentityServiceConfig{
		Users:          users,
		Sessions:       sessions,
		Mailer:         newLogMailer(logger),
		IDGenerator:    idGenerator,
		TokenGenerator: tokenGenerator,
		Now:            now,
		SessionTTL:     cfg.SessionTTL,
		AllowedDomains: cfg.AllowedDomains,
		Logger:         logger,
	})
	ledger := application.NewLedgerService(games, now, logger)
	catalog := application.NewCatalogService(games, users, ledger, idGenerator, now, logger)
	search, err := application.NewSearchService(games, logger)
	if err != nil {
		logger.Error("failed to construct search service", "error", err)
		os.Exit(1)
	}

	authHandler := httptransport.NewAuthHandler(identity, logger)
	gameHandler := httptransport.NewGameHandler(catalog, ledger, search, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           authHandler,
		Games:          gameHandler,
		RequireSession: httptransport.RequireSession(identity, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("pickup games API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// mapStorageError translates persistence sentinels into the application
// error taxonomy so service-level errors.Is checks keep working.
func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	default:
		return err
	}
}

type userStoreAdapter struct {
	repo persistence.UserRepository
	now  func() time.Time
}

func newUserStoreAdapter(repo persistence.UserRepository, now func() time.Time) *userStoreAdapter {
	if now == nil {
		now = time.Now
	}
	return &userStoreAdapter{repo: repo, now: now}
}

func (a *userStoreAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	record := toPersistenceUser(user, passwordHash)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = a.now()
		record.UpdatedAt = record.CreatedAt
	}
	if err := a.repo.CreateUser(ctx, record); err != nil {
		return application.User{}, mapStorageError(err)
	}
	stored, err := a.repo.GetUser(ctx, record.ID)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapStorageError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *userStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, mapStorageError(err)
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

type gameStoreAdapter struct {
	repo persistence.GameRepository
}

func newGameStoreAdapter(repo persistence.GameRepository) *gameStoreAdapter {
	return &gameStoreAdapter{repo: repo}
}

func (a *gameStoreAdapter) CreateGame(ctx context.Context, game application.Game, organizer application.Membership) error {
	return mapStorageError(a.repo.CreateGame(ctx, toPersistenceGame(game), toPersistenceMembership(organizer)))
}

func (a *gameStoreAdapter) GetGame(ctx context.Context, id string) (application.Game, error) {
	stored, err := a.repo.GetGame(ctx, id)
	if err != nil {
		return application.Game{}, mapStorageError(err)
	}
	return toApplicationGame(stored), nil
}

func (a *gameStoreAdapter) GetMembership(ctx context.Context, gameID, userID string) (application.Membership, error) {
	stored, err := a.repo.GetMembership(ctx, gameID, userID)
	if err != nil {
		return application.Membership{}, mapStorageError(err)
	}
	return toApplicationMembership(stored), nil
}

func (a *gameStoreAdapter) ListMemberships(ctx context.Context, gameID string) ([]application.Membership, error) {
	stored, err := a.repo.ListMemberships(ctx, gameID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	members := make([]application.Membership, 0, len(stored))
	for _, m := range stored {
		members = append(members, toApplicationMembership(m))
	}
	return members, nil
}

func (a *gameStoreAdapter) ApplyRosterChange(ctx context.Context, change application.RosterChange) error {
	mapped := persistence.RosterChange{
		Game:             toPersistenceGame(change.Game),
		ExpectedVersion:  change.ExpectedVersion,
		Remove:           change.Remove,
		PromoteOrganizer: change.PromoteOrganizer,
	}
	if change.Insert != nil {
		inserted := toPersistenceMembership(*change.Insert)
		mapped.Insert = &inserted
	}
	return mapStorageError(a.repo.ApplyRosterChange(ctx, mapped))
}

func (a *gameStoreAdapter) ListGames(ctx context.Context, params application.SearchParams) ([]application.Game, error) {
	stored, err := a.repo.ListGames(ctx, persistence.GameFilter{
		Query:          params.Query,
		Sport:          params.Sport,
		SkillLevel:     params.SkillLevel,
		ScheduledAfter: params.ScheduledAfter,
		ScheduledUntil: params.ScheduledUntil,
	})
	if err != nil {
		return nil, mapStorageError(err)
	}
	games := make([]application.Game, 0, len(stored))
	for _, g := range stored {
		games = append(games, toApplicationGame(g))
	}
	return games, nil
}

func (a *gameStoreAdapter) RosterRevision(ctx context.Context) (int64, error) {
	revision, err := a.repo.RosterRevision(ctx)
	if err != nil {
		return 0, mapStorageError(err)
	}
	return revision, nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapStorageError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapStorageError(a.repo.DeleteExpiredSessions(ctx, reference))
}

type logMailer struct {
	logger *slog.Logger
}

func newLogMailer(logger *slog.Logger) *logMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logMailer{logger: logger}
}

// SendVerification records the verification request. An SMTP-backed mailer
// can replace this without touching the identity service.
func (m *logMailer) SendVerification(ctx context.Context, email string) error {
	m.logger.InfoContext(ctx, "verification email queued", "email", email)
	return nil
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		University:   user.University,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationUser(user persistence.User) application.User {
	return application.User{
		ID:          user.ID,
		Email:       user.Email,
		University:  user.University,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toPersistenceGame(game application.Game) persistence.Game {
	var description *string
	if game.Description != "" {
		d := game.Description
		description = &d
	}
	return persistence.Game{
		ID:             game.ID,
		Sport:          game.Sport,
		Location:       game.Location,
		ScheduledAt:    game.ScheduledAt,
		MaxPlayers:     game.MaxPlayers,
		SkillLevel:     game.SkillLevel,
		Description:    description,
		OrganizerID:    game.OrganizerID,
		Status:         string(game.Status),
		Version:        game.Version,
		CurrentPlayers: game.CurrentPlayers,
		CreatedAt:      game.CreatedAt,
		UpdatedAt:      game.UpdatedAt,
	}
}

func toApplicationGame(game persistence.Game) application.Game {
	var description string
	if game.Description != nil {
		description = *game.Description
	}
	return application.Game{
		ID:             game.ID,
		Sport:          game.Sport,
		Location:       game.Location,
		ScheduledAt:    game.ScheduledAt,
		MaxPlayers:     game.MaxPlayers,
		SkillLevel:     game.SkillLevel,
		Description:    description,
		OrganizerID:    game.OrganizerID,
		Status:         application.GameStatus(game.Status),
		Version:        game.Version,
		CurrentPlayers: game.CurrentPlayers,
		CreatedAt:      game.CreatedAt,
		UpdatedAt:      game.UpdatedAt,
	}
}

func toPersistenceMembership(m application.Membership) persistence.Membership {
	return persistence.Membership{
		GameID:    m.GameID,
		UserID:    m.UserID,
		JoinedSeq: m.JoinedSeq,
		Role:      string(m.Role),
	}
}

func toApplicationMembership(m persistence.Membership) application.Membership {
	return application.Membership{
		GameID:    m.GameID,
		UserID:    m.UserID,
		JoinedSeq: m.JoinedSeq,
		Role:      application.MembershipRole(m.Role),
	}
}

func toPersistenceSession(s application.Session) persistence.Session {
	return persistence.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		RevokedAt: s.RevokedAt,
	}
}

func toApplicationSession(s persistence.Session) application.Session {
	return application.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		RevokedAt: s.RevokedAt,
	}
}
