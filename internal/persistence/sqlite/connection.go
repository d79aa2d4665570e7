package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/pickup-games/internal/persistence"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle shared by the repositories in this package.
type DB struct {
	db *sql.DB
}

// Open opens the database at the given DSN and applies the connection
// pragmas the repositories rely on.
func Open(dsn string) (*DB, error) {
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn between the pooled handles.
	handle.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := handle.Exec(pragma); err != nil {
			_ = handle.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	return &DB{db: handle}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Ping verifies the database connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate brings the schema up to the current version using the SQLite
// user_version pragma as the version marker.
func (d *DB) Migrate(ctx context.Context) error {
	var version int
	if err := d.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for next := version; next < len(migrations); next++ {
		if err := d.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range migrations[next] {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d: %w", next+1, err)
				}
			}
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", next+1)); err != nil {
				return fmt.Errorf("bump schema version to %d: %w", next+1, err)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

// migrations holds the ordered schema steps. Entry N runs when user_version
// equals N.
var migrations = [][]string{
	{
		`CREATE TABLE users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			university    TEXT NOT NULL,
			display_name  TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE TABLE games (
			id              TEXT PRIMARY KEY,
			sport           TEXT NOT NULL,
			location        TEXT NOT NULL,
			scheduled_at    TEXT NOT NULL,
			max_players     INTEGER NOT NULL CHECK (max_players BETWEEN 2 AND 50),
			skill_level     TEXT NOT NULL,
			description     TEXT,
			organizer_id    TEXT NOT NULL REFERENCES users(id),
			status          TEXT NOT NULL CHECK (status IN ('open', 'full', 'cancelled')),
			version         INTEGER NOT NULL DEFAULT 0,
			current_players INTEGER NOT NULL DEFAULT 0
				CHECK (current_players >= 0 AND current_players <= max_players),
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`,
		`CREATE INDEX idx_games_scheduled_at ON games(scheduled_at, id)`,
		`CREATE TABLE memberships (
			game_id    TEXT NOT NULL REFERENCES games(id),
			user_id    TEXT NOT NULL REFERENCES users(id),
			joined_seq INTEGER NOT NULL,
			role       TEXT NOT NULL CHECK (role IN ('organizer', 'player')),
			PRIMARY KEY (game_id, user_id),
			UNIQUE (game_id, joined_seq)
		)`,
		`CREATE TABLE sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			token      TEXT NOT NULL UNIQUE,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			revoked_at TEXT
		)`,
	},
}

func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapError translates SQLite driver errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return persistence.ErrForeignKeyViolation
	case strings.Contains(msg, "CHECK constraint failed"):
		return persistence.ErrConstraintViolation
	}
	return err
}
