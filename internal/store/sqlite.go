package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS boards (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	scene      TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now')),
	UNIQUE (board_id, version)
);
`

// SQLite is the file-backed store for single-machine deployments. Uses the
// wazero-based driver, so no cgo.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, display_name) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName)
	if err != nil {
		if isSQLiteDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE email = ?`, email))
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLite) scanUser(row *sql.Row) (User, error) {
	var u User
	var created string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseSQLiteTime(created)
	return u, nil
}

func (s *SQLite) CreateBoard(ctx context.Context, b Board) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boards (id, name, owner_id) VALUES (?, ?, ?)`,
		b.ID, b.Name, b.OwnerID)
	if err != nil {
		if isSQLiteDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (s *SQLite) GetBoard(ctx context.Context, id string) (Board, error) {
	var b Board
	var created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM boards WHERE id = ?`,
		id).Scan(&b.ID, &b.Name, &b.OwnerID, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Board{}, ErrNotFound
		}
		return Board{}, fmt.Errorf("get board: %w", err)
	}
	b.CreatedAt = parseSQLiteTime(created)
	b.UpdatedAt = parseSQLiteTime(updated)
	return b, nil
}

func (s *SQLite) ListBoards(ctx context.Context, ownerID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM boards
		 WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []Board
	for rows.Next() {
		var b Board
		var created, updated string
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerID, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		b.CreatedAt = parseSQLiteTime(created)
		b.UpdatedAt = parseSQLiteTime(updated)
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (s *SQLite) DeleteBoard(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) SaveSnapshot(ctx context.Context, boardID, snapshotID string, scene json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, board_id, version, scene)
		 VALUES (?, ?, COALESCE((SELECT MAX(version) FROM snapshots WHERE board_id = ?), 0) + 1, ?)`,
		snapshotID, boardID, boardID, string(scene))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE boards SET updated_at = datetime('now') WHERE id = ?`, boardID)
	if err != nil {
		return fmt.Errorf("touch board: %w", err)
	}
	return nil
}

func (s *SQLite) LoadSnapshot(ctx context.Context, boardID string) (Snapshot, error) {
	var snap Snapshot
	var scene, created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, board_id, version, scene, created_at FROM snapshots
		 WHERE board_id = ? ORDER BY version DESC LIMIT 1`,
		boardID).Scan(&snap.ID, &snap.BoardID, &snap.Version, &scene, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Scene = json.RawMessage(scene)
	snap.CreatedAt = parseSQLiteTime(created)
	return snap, nil
}

func isSQLiteDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func parseSQLiteTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
