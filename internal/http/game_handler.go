package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/pickup-games/internal/application"
)

type catalogService interface {
	CreateGame(ctx context.Context, params application.CreateGameParams) (application.Game, error)
	GetGame(ctx context.Context, gameID string) (application.GameDetail, error)
	CancelGame(ctx context.Context, principal application.Principal, gameID string) error
}

type rosterService interface {
	Join(ctx context.Context, gameID, userID string) (application.Membership, error)
	Leave(ctx context.Context, gameID, userID string) error
}

type gameSearcher interface {
	Search(ctx context.Context, params application.SearchParams) ([]application.Game, error)
}

// GameHandler serves the game catalog, search, and roster actions.
type GameHandler struct {
	catalog   catalogService
	roster    rosterService
	search    gameSearcher
	responder responder
	logger    *slog.Logger
}

// NewGameHandler constructs the handler over the catalog, ledger, and search services.
func NewGameHandler(catalog catalogService, roster rosterService, search gameSearcher, logger *slog.Logger) *GameHandler {
	base := defaultLogger(logger)
	return &GameHandler{
		catalog:   catalog,
		roster:    roster,
		search:    search,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *GameHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "GameHandler", operation, attrs...)
}

// Create opens a new game with the caller as organizer.
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode game request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, inputErr := req.toInput()
	if inputErr != nil {
		h.responder.handleServiceError(r.Context(), w, inputErr)
		return
	}

	logger := h.log(r.Context(), "Create", "user_id", principal.UserID, "sport", input.Sport)

	game, err := h.catalog.CreateGame(r.Context(), application.CreateGameParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create game", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("game_id", game.ID).InfoContext(r.Context(), "game created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newGamePayload(game))
}

// List returns games matching the query filters, soonest first.
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.search == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	games, err := h.search.Search(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "search failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	payload := listGamesResponse{Games: make([]gamePayload, 0, len(games))}
	for _, game := range games {
		payload.Games = append(payload.Games, newGamePayload(game))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Get returns one game with its full roster.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	gameID, ok := GameIDFromContext(r.Context())
	if !ok || gameID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGameID)
		return
	}

	detail, err := h.catalog.GetGame(r.Context(), gameID)
	if err != nil {
		h.log(r.Context(), "Get", "game_id", gameID).ErrorContext(r.Context(), "failed to load game", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, newGameDetailPayload(detail))
}

// Join adds the caller to the roster, filling the game when the last spot goes.
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.rosterAction(w, r, "Join", func(ctx context.Context, principal application.Principal, gameID string) error {
		_, err := h.roster.Join(ctx, gameID, principal.UserID)
		return err
	})
}

// Leave removes the caller from the roster.
func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.rosterAction(w, r, "Leave", func(ctx context.Context, principal application.Principal, gameID string) error {
		return h.roster.Leave(ctx, gameID, principal.UserID)
	})
}

// Cancel marks the game cancelled. Only the organizer may do this.
func (h *GameHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.rosterAction(w, r, "Cancel", func(ctx context.Context, principal application.Principal, gameID string) error {
		return h.catalog.CancelGame(ctx, principal, gameID)
	})
}

// rosterAction runs a membership-affecting action and responds with the
// post-action game snapshot so clients see the roster they just changed.
func (h *GameHandler) rosterAction(w http.ResponseWriter, r *http.Request, operation string, action func(context.Context, application.Principal, string) error) {
	if h == nil || h.roster == nil || h.catalog == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	gameID, ok := GameIDFromContext(r.Context())
	if !ok || gameID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGameID)
		return
	}

	logger := h.log(r.Context(), operation, "user_id", principal.UserID, "game_id", gameID)

	if err := action(r.Context(), principal, gameID); err != nil {
		logger.ErrorContext(r.Context(), "roster action failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	detail, err := h.catalog.GetGame(r.Context(), gameID)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load game after roster action", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", string(detail.Game.Status), "current_players", detail.Game.CurrentPlayers).InfoContext(r.Context(), "roster action applied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newGameDetailPayload(detail))
}

type createGameRequest struct {
	Sport       string `json:"sport"`
	Location    string `json:"location"`
	ScheduledAt string `json:"scheduled_at"`
	MaxPlayers  int    `json:"max_players"`
	SkillLevel  string `json:"skill_level"`
	Description string `json:"description,omitempty"`
}

func (r createGameRequest) toInput() (application.GameInput, error) {
	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(r.ScheduledAt))
	if err != nil {
		return application.GameInput{}, &application.ValidationError{
			FieldErrors: map[string]string{"scheduled_at": "must be an RFC 3339 timestamp"},
		}
	}

	return application.GameInput{
		Sport:       strings.TrimSpace(r.Sport),
		Location:    strings.TrimSpace(r.Location),
		ScheduledAt: scheduledAt,
		MaxPlayers:  r.MaxPlayers,
		SkillLevel:  strings.TrimSpace(r.SkillLevel),
		Description: r.Description,
	}, nil
}

func parseSearchParams(values url.Values) (application.SearchParams, error) {
	params := application.SearchParams{
		Query:      strings.TrimSpace(values.Get("q")),
		Sport:      strings.TrimSpace(values.Get("sport")),
		SkillLevel: strings.TrimSpace(values.Get("skill_level")),
	}

	fieldErrors := map[string]string{}
	if raw := strings.TrimSpace(values.Get("after")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrors["after"] = "must be an RFC 3339 timestamp"
		} else {
			params.ScheduledAfter = &parsed
		}
	}
	if raw := strings.TrimSpace(values.Get("until")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fieldErrors["until"] = "must be an RFC 3339 timestamp"
		} else {
			params.ScheduledUntil = &parsed
		}
	}
	if len(fieldErrors) > 0 {
		return application.SearchParams{}, &application.ValidationError{FieldErrors: fieldErrors}
	}

	return params, nil
}

type gamePayload struct {
	ID             string `json:"id"`
	Sport          string `json:"sport"`
	Location       string `json:"location"`
	ScheduledAt    string `json:"scheduled_at"`
	MaxPlayers     int    `json:"max_players"`
	CurrentPlayers int    `json:"current_players"`
	SkillLevel     string `json:"skill_level"`
	Description    string `json:"description,omitempty"`
	OrganizerID    string `json:"organizer_id"`
	Status         string `json:"status"`
	SpotsLeft      int    `json:"spots_left"`
}

func newGamePayload(game application.Game) gamePayload {
	spotsLeft := game.MaxPlayers - game.CurrentPlayers
	if spotsLeft < 0 {
		spotsLeft = 0
	}
	return gamePayload{
		ID:             game.ID,
		Sport:          game.Sport,
		Location:       game.Location,
		ScheduledAt:    game.ScheduledAt.UTC().Format(time.RFC3339Nano),
		MaxPlayers:     game.MaxPlayers,
		CurrentPlayers: game.CurrentPlayers,
		SkillLevel:     game.SkillLevel,
		Description:    game.Description,
		OrganizerID:    game.OrganizerID,
		Status:         string(game.Status),
		SpotsLeft:      spotsLeft,
	}
}

type listGamesResponse struct {
	Games []gamePayload `json:"games"`
}

type rosterEntryPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	JoinedSeq   int64  `json:"joined_seq"`
}

type gameDetailPayload struct {
	gamePayload
	Roster []rosterEntryPayload `json:"roster"`
}

func newGameDetailPayload(detail application.GameDetail) gameDetailPayload {
	payload := gameDetailPayload{
		gamePayload: newGamePayload(detail.Game),
		Roster:      make([]rosterEntryPayload, 0, len(detail.Roster)),
	}
	for _, entry := range detail.Roster {
		payload.Roster = append(payload.Roster, rosterEntryPayload{
			UserID:      entry.UserID,
			DisplayName: entry.DisplayName,
			Role:        string(entry.Role),
			JoinedSeq:   entry.JoinedSeq,
		})
	}
	return payload
}
