package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS boards (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	scene      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (board_id, version)
);
`

// Postgres is the pgx-backed store.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool and ensures the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, display_name) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName)
	if err != nil {
		if isPgDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`,
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (p *Postgres) CreateBoard(ctx context.Context, b Board) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO boards (id, name, owner_id) VALUES ($1, $2, $3)`,
		b.ID, b.Name, b.OwnerID)
	if err != nil {
		if isPgDuplicate(err) {
			return ErrConflict
		}
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (p *Postgres) GetBoard(ctx context.Context, id string) (Board, error) {
	var b Board
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM boards WHERE id = $1`,
		id).Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Board{}, ErrNotFound
		}
		return Board{}, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

func (p *Postgres) ListBoards(ctx context.Context, ownerID string) ([]Board, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM boards
		 WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []Board
	for rows.Next() {
		var b Board
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (p *Postgres) DeleteBoard(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SaveSnapshot(ctx context.Context, boardID, snapshotID string, scene json.RawMessage) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO snapshots (id, board_id, version, scene)
		 VALUES ($1, $2, COALESCE((SELECT MAX(version) FROM snapshots WHERE board_id = $2), 0) + 1, $3)`,
		snapshotID, boardID, scene)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	_, err = p.pool.Exec(ctx, `UPDATE boards SET updated_at = now() WHERE id = $1`, boardID)
	if err != nil {
		return fmt.Errorf("touch board: %w", err)
	}
	return nil
}

func (p *Postgres) LoadSnapshot(ctx context.Context, boardID string) (Snapshot, error) {
	var s Snapshot
	err := p.pool.QueryRow(ctx,
		`SELECT id, board_id, version, scene, created_at FROM snapshots
		 WHERE board_id = $1 ORDER BY version DESC LIMIT 1`,
		boardID).Scan(&s.ID, &s.BoardID, &s.Version, &s.Scene, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s, nil
}

func isPgDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
