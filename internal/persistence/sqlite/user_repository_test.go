package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/testfixtures"
)

func TestUserRepository_CreateUser(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := seedUser(t, harness, testfixtures.WithUserEmail("Mixed.Case@State.EDU"))

	retrieved, err := harness.Users.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if retrieved.Email != "mixed.case@state.edu" {
		t.Errorf("expected normalized email, got %q", retrieved.Email)
	}
	if retrieved.University != user.University {
		t.Errorf("expected university %q, got %q", user.University, retrieved.University)
	}
	if retrieved.PasswordHash != user.PasswordHash {
		t.Errorf("expected stored password hash, got %q", retrieved.PasswordHash)
	}
}

func TestUserRepository_CreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	seedUser(t, harness, testfixtures.WithUserEmail("taken@state.edu"))

	dup := testfixtures.NewUserFixture(testfixtures.WithUserEmail("Taken@state.edu")).Persistence()
	err := harness.Users.CreateUser(ctx, dup)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUserRepository_CreateUser_RequiresHash(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)

	user := testfixtures.NewUserFixture(testfixtures.WithUserPasswordHash("")).Persistence()
	err := harness.Users.CreateUser(context.Background(), user)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestUserRepository_GetUserByEmail(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	user := seedUser(t, harness, testfixtures.WithUserEmail("lookup@state.edu"))

	retrieved, err := harness.Users.GetUserByEmail(ctx, "  LOOKUP@state.edu ")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if retrieved.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, retrieved.ID)
	}

	if _, err := harness.Users.GetUserByEmail(ctx, "missing@state.edu"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_GetUser_NotFound(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)

	if _, err := harness.Users.GetUser(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
