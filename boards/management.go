package boards

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Management creates and lists boards and their lanes. Board creation is
// announced to the owning workspace room; lane creation to the board room.
type Management struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// NewManagement creates the board management service.
func NewManagement(store Store, bus events.Bus, logger *log.Logger) *Management {
	return &Management{store: store, bus: bus, logger: logger}
}

// CreateBoard makes a board, optionally attached to a workspace.
func (s *Management) CreateBoard(ctx context.Context, ownerID, workspaceID, name string) (domain.Board, error) {
	b := domain.Board{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateBoard(ctx, b); err != nil {
		return domain.Board{}, err
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.BoardCreated,
		Payload: map[string]any{
			"boardId":     b.ID,
			"workspaceId": b.WorkspaceID,
			"name":        b.Name,
			"ownerId":     b.OwnerID,
		},
		Meta: &events.Meta{BoardID: b.ID, WorkspaceID: b.WorkspaceID},
	})
	return b, nil
}

// GetBoard fetches one board.
func (s *Management) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	return s.store.GetBoard(ctx, boardID)
}

// ListBoards lists boards, optionally filtered by workspace.
func (s *Management) ListBoards(ctx context.Context, workspaceID string) ([]domain.Board, error) {
	return s.store.ListBoards(ctx, workspaceID)
}

// CreateLane adds a lane to a board and publishes lane:created to the board
// room. The board must exist.
func (s *Management) CreateLane(ctx context.Context, boardID, title string, position int) (domain.Lane, error) {
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return domain.Lane{}, err
	}
	lane := domain.Lane{
		ID:       uuid.NewString(),
		BoardID:  boardID,
		Title:    title,
		Position: position,
	}
	if err := s.store.CreateLane(ctx, lane); err != nil {
		return domain.Lane{}, err
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.LaneCreated,
		Payload: map[string]any{
			"laneId":   lane.ID,
			"boardId":  lane.BoardID,
			"title":    lane.Title,
			"position": lane.Position,
		},
		Meta: &events.Meta{BoardID: boardID},
	})
	return lane, nil
}

// Lanes lists a board's lanes.
func (s *Management) Lanes(ctx context.Context, boardID string) ([]domain.Lane, error) {
	return s.store.ListLanes(ctx, boardID)
}
