package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/pickup-games/internal/persistence"
)

// GameRepository implements persistence.GameRepository over SQLite. All
// roster mutations commit the membership write and the denormalized game
// update in a single transaction.
type GameRepository struct {
	db *DB
}

// NewGameRepository constructs a game repository bound to the database.
func NewGameRepository(db *DB) *GameRepository {
	return &GameRepository{db: db}
}

// CreateGame inserts the game row and its organizer membership atomically.
func (r *GameRepository) CreateGame(ctx context.Context, game persistence.Game, organizer persistence.Membership) error {
	if game.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if organizer.GameID != game.ID {
		return fmt.Errorf("organizer membership game %q does not match game %q", organizer.GameID, game.ID)
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO games (id, sport, location, scheduled_at, max_players, skill_level,
				description, organizer_id, status, version, current_players, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			game.ID,
			game.Sport,
			game.Location,
			formatTime(game.ScheduledAt),
			game.MaxPlayers,
			game.SkillLevel,
			game.Description,
			game.OrganizerID,
			game.Status,
			game.Version,
			game.CurrentPlayers,
			formatTime(game.CreatedAt),
			formatTime(game.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		if err := insertMembership(tx, organizer); err != nil {
			return err
		}
		return nil
	})
}

// GetGame retrieves a game snapshot by ID.
func (r *GameRepository) GetGame(ctx context.Context, id string) (persistence.Game, error) {
	if id == "" {
		return persistence.Game{}, persistence.ErrNotFound
	}
	return scanGame(r.db.db.QueryRowContext(ctx, gameSelect+" WHERE id = ?", id))
}

// ListGames returns games matching the filter ordered by scheduled time,
// ties broken by ID.
func (r *GameRepository) ListGames(ctx context.Context, filter persistence.GameFilter) ([]persistence.Game, error) {
	query := gameSelect
	var clauses []string
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		clauses = append(clauses, "(LOWER(sport) LIKE ? OR LOWER(location) LIKE ?)")
		pattern := "%" + strings.ToLower(q) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Sport != "" {
		clauses = append(clauses, "sport = ?")
		args = append(args, filter.Sport)
	}
	if filter.SkillLevel != "" {
		clauses = append(clauses, "skill_level = ?")
		args = append(args, filter.SkillLevel)
	}
	if filter.ScheduledAfter != nil {
		clauses = append(clauses, "scheduled_at >= ?")
		args = append(args, formatTime(*filter.ScheduledAfter))
	}
	if filter.ScheduledUntil != nil {
		clauses = append(clauses, "scheduled_at <= ?")
		args = append(args, formatTime(*filter.ScheduledUntil))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY scheduled_at ASC, id ASC"

	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var games []persistence.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return games, nil
}

// GetMembership retrieves the membership for a user in a game.
func (r *GameRepository) GetMembership(ctx context.Context, gameID, userID string) (persistence.Membership, error) {
	var m persistence.Membership
	err := r.db.db.QueryRowContext(ctx, `
		SELECT game_id, user_id, joined_seq, role
		FROM memberships
		WHERE game_id = ? AND user_id = ?`, gameID, userID,
	).Scan(&m.GameID, &m.UserID, &m.JoinedSeq, &m.Role)
	if err != nil {
		return persistence.Membership{}, mapError(err)
	}
	return m, nil
}

// ListMemberships returns the roster of a game ordered by join sequence.
func (r *GameRepository) ListMemberships(ctx context.Context, gameID string) ([]persistence.Membership, error) {
	rows, err := r.db.db.QueryContext(ctx, `
		SELECT game_id, user_id, joined_seq, role
		FROM memberships
		WHERE game_id = ?
		ORDER BY joined_seq ASC`, gameID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var members []persistence.Membership
	for rows.Next() {
		var m persistence.Membership
		if err := rows.Scan(&m.GameID, &m.UserID, &m.JoinedSeq, &m.Role); err != nil {
			return nil, mapError(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return members, nil
}

// ApplyRosterChange commits a membership mutation and the updated
// denormalized game fields atomically, guarded by the expected version.
func (r *GameRepository) ApplyRosterChange(ctx context.Context, change persistence.RosterChange) error {
	game := change.Game
	if game.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE games
			SET status = ?, version = ?, current_players = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			game.Status,
			game.Version,
			game.CurrentPlayers,
			formatTime(game.UpdatedAt),
			game.ID,
			change.ExpectedVersion,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Either the game vanished or another writer slipped past the
			// per-game lock. Distinguish for the caller.
			var exists int
			if err := tx.QueryRow("SELECT COUNT(*) FROM games WHERE id = ?", game.ID).Scan(&exists); err != nil {
				return mapError(err)
			}
			if exists == 0 {
				return persistence.ErrNotFound
			}
			return persistence.ErrVersionConflict
		}

		if change.Insert != nil {
			if err := insertMembership(tx, *change.Insert); err != nil {
				return err
			}
		}
		if change.Remove != nil {
			if _, err := tx.Exec(
				"DELETE FROM memberships WHERE game_id = ? AND user_id = ?",
				game.ID, *change.Remove,
			); err != nil {
				return mapError(err)
			}
		}
		if change.PromoteOrganizer != nil {
			if _, err := tx.Exec(
				"UPDATE memberships SET role = 'organizer' WHERE game_id = ? AND user_id = ?",
				game.ID, *change.PromoteOrganizer,
			); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// RosterRevision advances whenever a game is created or its roster mutates.
func (r *GameRepository) RosterRevision(ctx context.Context) (int64, error) {
	var revision int64
	err := r.db.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(version), 0) + COUNT(*) FROM games",
	).Scan(&revision)
	if err != nil {
		return 0, mapError(err)
	}
	return revision, nil
}

const gameSelect = `
	SELECT id, sport, location, scheduled_at, max_players, skill_level,
		description, organizer_id, status, version, current_players,
		created_at, updated_at
	FROM games`

func scanGame(row rowScanner) (persistence.Game, error) {
	var game persistence.Game
	var scheduledAt, createdAt, updatedAt string

	err := row.Scan(
		&game.ID,
		&game.Sport,
		&game.Location,
		&scheduledAt,
		&game.MaxPlayers,
		&game.SkillLevel,
		&game.Description,
		&game.OrganizerID,
		&game.Status,
		&game.Version,
		&game.CurrentPlayers,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Game{}, mapError(err)
	}

	if game.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return persistence.Game{}, fmt.Errorf("parse scheduled_at: %w", err)
	}
	if game.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Game{}, fmt.Errorf("parse created_at: %w", err)
	}
	if game.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Game{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return game, nil
}

func insertMembership(tx *sql.Tx, m persistence.Membership) error {
	_, err := tx.Exec(`
		INSERT INTO memberships (game_id, user_id, joined_seq, role)
		VALUES (?, ?, ?, ?)`,
		m.GameID, m.UserID, m.JoinedSeq, m.Role,
	)
	return mapError(err)
}
