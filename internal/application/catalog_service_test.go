package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type userDirectoryStub struct {
	users map[string]User
}

func (s *userDirectoryStub) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func newTestCatalog(store *gameStoreStub, users *userDirectoryStub, now time.Time) (*CatalogService, *LedgerService) {
	ledger := NewLedgerService(store, func() time.Time { return now }, nil)
	counter := 0
	catalog := NewCatalogService(store, users, ledger, func() string {
		counter++
		return "game-" + string(rune('0'+counter))
	}, func() time.Time { return now }, nil)
	return catalog, ledger
}

func validInput(now time.Time) GameInput {
	return GameInput{
		Sport:       "Soccer",
		Location:    "North Field",
		ScheduledAt: now.Add(48 * time.Hour),
		MaxPlayers:  10,
		SkillLevel:  "Intermediate",
		Description: "Bring both jerseys",
	}
}

func TestCatalogService_CreateGame(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates an open game with the organizer enrolled", func(t *testing.T) {
		t.Parallel()

		store := newGameStoreStub()
		catalog, _ := newTestCatalog(store, &userDirectoryStub{}, now)

		game, err := catalog.CreateGame(context.Background(), CreateGameParams{
			Principal: Principal{UserID: "org-1"},
			Input:     validInput(now),
		})
		if err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if game.Status != StatusOpen {
			t.Fatalf("expected open status, got %s", game.Status)
		}
		if game.CurrentPlayers != 1 {
			t.Fatalf("expected the organizer to hold a spot, got %d", game.CurrentPlayers)
		}
		if game.OrganizerID != "org-1" {
			t.Fatalf("expected organizer org-1, got %s", game.OrganizerID)
		}

		membership, err := store.GetMembership(context.Background(), game.ID, "org-1")
		if err != nil {
			t.Fatalf("organizer membership missing: %v", err)
		}
		if membership.Role != RoleOrganizer {
			t.Fatalf("expected organizer role, got %s", membership.Role)
		}
	})

	t.Run("requires an authenticated principal", func(t *testing.T) {
		t.Parallel()

		catalog, _ := newTestCatalog(newGameStoreStub(), &userDirectoryStub{}, now)

		_, err := catalog.CreateGame(context.Background(), CreateGameParams{Input: validInput(now)})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects invalid input with field errors", func(t *testing.T) {
		t.Parallel()

		catalog, _ := newTestCatalog(newGameStoreStub(), &userDirectoryStub{}, now)

		cases := []struct {
			name  string
			input GameInput
			field string
		}{
			{
				name: "unsupported sport",
				input: func() GameInput {
					in := validInput(now)
					in.Sport = "Cricket"
					return in
				}(),
				field: "sport",
			},
			{
				name: "unsupported skill level",
				input: func() GameInput {
					in := validInput(now)
					in.SkillLevel = "Pro"
					return in
				}(),
				field: "skillLevel",
			},
			{
				name: "missing location",
				input: func() GameInput {
					in := validInput(now)
					in.Location = "   "
					return in
				}(),
				field: "location",
			},
			{
				name: "capacity below minimum",
				input: func() GameInput {
					in := validInput(now)
					in.MaxPlayers = 1
					return in
				}(),
				field: "maxPlayers",
			},
			{
				name: "capacity above maximum",
				input: func() GameInput {
					in := validInput(now)
					in.MaxPlayers = 51
					return in
				}(),
				field: "maxPlayers",
			},
			{
				name: "scheduled in the past",
				input: func() GameInput {
					in := validInput(now)
					in.ScheduledAt = now.Add(-time.Hour)
					return in
				}(),
				field: "scheduledAt",
			},
		}

		for _, tc := range cases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				_, err := catalog.CreateGame(context.Background(), CreateGameParams{
					Principal: Principal{UserID: "org-1"},
					Input:     tc.input,
				})
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if _, ok := vErr.FieldErrors[tc.field]; !ok {
					t.Fatalf("expected %s field error, got %#v", tc.field, vErr.FieldErrors)
				}
			})
		}
	})
}

func TestCatalogService_GetGame(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	t.Run("returns the roster in join order with display names", func(t *testing.T) {
		t.Parallel()

		store := newGameStoreStub()
		users := &userDirectoryStub{users: map[string]User{
			"org-1":    {ID: "org-1", DisplayName: "Alex"},
			"player-1": {ID: "player-1", DisplayName: "Brook"},
		}}
		catalog, ledger := newTestCatalog(store, users, now)

		game, err := catalog.CreateGame(context.Background(), CreateGameParams{
			Principal: Principal{UserID: "org-1"},
			Input:     validInput(now),
		})
		if err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if _, err := ledger.Join(context.Background(), game.ID, "player-1"); err != nil {
			t.Fatalf("join failed: %v", err)
		}

		detail, err := catalog.GetGame(context.Background(), game.ID)
		if err != nil {
			t.Fatalf("GetGame failed: %v", err)
		}
		if len(detail.Roster) != 2 {
			t.Fatalf("expected two roster entries, got %d", len(detail.Roster))
		}
		if detail.Roster[0].UserID != "org-1" || detail.Roster[0].DisplayName != "Alex" {
			t.Fatalf("unexpected first entry %#v", detail.Roster[0])
		}
		if detail.Roster[1].UserID != "player-1" || detail.Roster[1].DisplayName != "Brook" {
			t.Fatalf("unexpected second entry %#v", detail.Roster[1])
		}
		if detail.Game.CurrentPlayers != 2 {
			t.Fatalf("expected counter 2, got %d", detail.Game.CurrentPlayers)
		}
	})

	t.Run("tolerates roster members without accounts", func(t *testing.T) {
		t.Parallel()

		store := newGameStoreStub()
		catalog, _ := newTestCatalog(store, &userDirectoryStub{users: map[string]User{}}, now)

		game, err := catalog.CreateGame(context.Background(), CreateGameParams{
			Principal: Principal{UserID: "org-1"},
			Input:     validInput(now),
		})
		if err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}

		detail, err := catalog.GetGame(context.Background(), game.ID)
		if err != nil {
			t.Fatalf("GetGame failed: %v", err)
		}
		if detail.Roster[0].DisplayName != "" {
			t.Fatalf("expected empty display name, got %q", detail.Roster[0].DisplayName)
		}
	})

	t.Run("unknown games surface not found", func(t *testing.T) {
		t.Parallel()

		catalog, _ := newTestCatalog(newGameStoreStub(), &userDirectoryStub{}, now)

		_, err := catalog.GetGame(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCatalogService_CancelGame(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

	t.Run("organizer cancels through the ledger", func(t *testing.T) {
		t.Parallel()

		store := newGameStoreStub()
		catalog, _ := newTestCatalog(store, &userDirectoryStub{}, now)

		game, err := catalog.CreateGame(context.Background(), CreateGameParams{
			Principal: Principal{UserID: "org-1"},
			Input:     validInput(now),
		})
		if err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if err := catalog.CancelGame(context.Background(), Principal{UserID: "org-1"}, game.ID); err != nil {
			t.Fatalf("CancelGame failed: %v", err)
		}

		stored, _ := store.GetGame(context.Background(), game.ID)
		if stored.Status != StatusCancelled {
			t.Fatalf("expected cancelled status, got %s", stored.Status)
		}
	})

	t.Run("non-organizers are rejected", func(t *testing.T) {
		t.Parallel()

		store := newGameStoreStub()
		catalog, ledger := newTestCatalog(store, &userDirectoryStub{}, now)

		game, err := catalog.CreateGame(context.Background(), CreateGameParams{
			Principal: Principal{UserID: "org-1"},
			Input:     validInput(now),
		})
		if err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if _, err := ledger.Join(context.Background(), game.ID, "player-1"); err != nil {
			t.Fatalf("join failed: %v", err)
		}

		err = catalog.CancelGame(context.Background(), Principal{UserID: "player-1"}, game.ID)
		if !errors.Is(err, ErrNotOrganizer) {
			t.Fatalf("expected ErrNotOrganizer, got %v", err)
		}
	})

	t.Run("requires an authenticated principal", func(t *testing.T) {
		t.Parallel()

		catalog, _ := newTestCatalog(newGameStoreStub(), &userDirectoryStub{}, now)

		err := catalog.CancelGame(context.Background(), Principal{}, "g1")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
