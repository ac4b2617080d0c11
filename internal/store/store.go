// Package store is the persistence adapter: durable storage for users,
// boards and the single latest scene snapshot per board slot. Two backends
// exist, selected by the configured DSN.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

type Board struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is a saved scene: the plain structural encoding of the shape
// array. The format is not versioned; Version only orders writes within a
// board slot.
type Snapshot struct {
	ID        string
	BoardID   string
	Version   int
	Scene     json.RawMessage
	CreatedAt time.Time
}

type Store interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateBoard(ctx context.Context, b Board) error
	GetBoard(ctx context.Context, id string) (Board, error)
	ListBoards(ctx context.Context, ownerID string) ([]Board, error)
	DeleteBoard(ctx context.Context, id string) error

	// SaveSnapshot writes a new latest snapshot for the board slot,
	// assigning the next version.
	SaveSnapshot(ctx context.Context, boardID, snapshotID string, scene json.RawMessage) error
	// LoadSnapshot returns the latest snapshot for the board slot, or
	// ErrNotFound when the slot has never been saved.
	LoadSnapshot(ctx context.Context, boardID string) (Snapshot, error)

	Close() error
}

// Open picks a backend from the DSN: postgres:// URLs get the pgx pool,
// anything else is treated as a sqlite file path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn)
}
