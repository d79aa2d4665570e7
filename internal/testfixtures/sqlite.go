package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/pickup-games/internal/persistence"
	"github.com/example/pickup-games/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	DB       *sqlite.DB
	Users    persistence.UserRepository
	Games    persistence.GameRepository
	Sessions persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary database file
// that is migrated automatically. Cleanup is registered with the provided
// testing.TB, but callers may also Close explicitly.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "pickup.db")

	db, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		DB:       db,
		Users:    sqlite.NewUserRepository(db),
		Games:    sqlite.NewGameRepository(db),
		Sessions: sqlite.NewSessionRepository(db),
		cleanup: func() {
			_ = db.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
