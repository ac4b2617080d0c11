package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doodlekit/doodlekit/backend-go/internal/scene"
	"github.com/doodlekit/doodlekit/backend-go/internal/store"
	"github.com/doodlekit/doodlekit/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("board not found")
	ErrForbidden = errors.New("forbidden")
)

// Service owns named boards: each board is one persistence slot holding the
// latest scene snapshot.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Board, error) {
	b := store.Board{
		ID:      typeid.NewBoardID(),
		Name:    name,
		OwnerID: ownerID,
	}
	if err := s.store.CreateBoard(ctx, b); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	// Seed the slot with an empty scene so load always finds a snapshot
	// after creation.
	emptyScene, err := json.Marshal(scene.New())
	if err != nil {
		return nil, fmt.Errorf("marshal empty scene: %w", err)
	}
	if err := s.store.SaveSnapshot(ctx, b.ID, typeid.NewSnapshotID(), emptyScene); err != nil {
		return nil, fmt.Errorf("seed snapshot: %w", err)
	}

	created, err := s.store.GetBoard(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return toBoard(created), nil
}

func (s *Service) Get(ctx context.Context, boardID, userID string) (*Board, error) {
	b, err := s.ownedBoard(ctx, boardID, userID)
	if err != nil {
		return nil, err
	}
	return toBoard(b), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Board, error) {
	dbBoards, err := s.store.ListBoards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}

	boards := make([]Board, len(dbBoards))
	for i, b := range dbBoards {
		boards[i] = *toBoard(b)
	}
	return boards, nil
}

func (s *Service) Delete(ctx context.Context, boardID, userID string) error {
	if _, err := s.ownedBoard(ctx, boardID, userID); err != nil {
		return err
	}
	return s.store.DeleteBoard(ctx, boardID)
}

// LoadScene returns the latest scene snapshot for the board. A board whose
// slot was never written loads as absent (ErrNotFound).
func (s *Service) LoadScene(ctx context.Context, boardID, userID string) (json.RawMessage, error) {
	if _, err := s.ownedBoard(ctx, boardID, userID); err != nil {
		return nil, err
	}

	snap, err := s.store.LoadSnapshot(ctx, boardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap.Scene, nil
}

// SaveScene writes the scene as the board's new latest snapshot.
func (s *Service) SaveScene(ctx context.Context, boardID, userID string, sceneJSON json.RawMessage) error {
	if _, err := s.ownedBoard(ctx, boardID, userID); err != nil {
		return err
	}

	if err := s.store.SaveSnapshot(ctx, boardID, typeid.NewSnapshotID(), sceneJSON); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Service) ownedBoard(ctx context.Context, boardID, userID string) (store.Board, error) {
	// Ids arrive from URL paths; a malformed one can never match a board.
	if err := typeid.Validate(boardID, typeid.PrefixBoard); err != nil {
		return store.Board{}, ErrNotFound
	}

	b, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Board{}, ErrNotFound
		}
		return store.Board{}, fmt.Errorf("get board: %w", err)
	}
	if b.OwnerID != userID {
		return store.Board{}, ErrForbidden
	}
	return b, nil
}

func toBoard(b store.Board) *Board {
	return &Board{
		ID:        b.ID,
		Name:      b.Name,
		OwnerID:   b.OwnerID,
		CreatedAt: b.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: b.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
