package boards

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/events"
)

// Assignees manages card assignments. Assign and Unassign are idempotent:
// repeating a request succeeds without a second event.
type Assignees struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// NewAssignees creates the assignee command service.
func NewAssignees(store Store, bus events.Bus, logger *log.Logger) *Assignees {
	return &Assignees{store: store, bus: bus, logger: logger}
}

// AssignResult reports the API-level outcome; Assigned is true on both a
// fresh assignment and a duplicate request.
type AssignResult struct {
	Assigned        bool `json:"assigned"`
	AlreadyAssigned bool `json:"alreadyAssigned,omitempty"`
}

// Assign adds a user to a card. assignee:added is published only when the
// assignment row was actually inserted.
func (s *Assignees) Assign(ctx context.Context, boardID, cardID, userID string) (AssignResult, error) {
	now := time.Now().UTC()
	inserted, err := s.store.AssignUser(ctx, cardID, userID, now.Format(time.RFC3339Nano))
	if err != nil {
		return AssignResult{}, err
	}
	if !inserted {
		return AssignResult{Assigned: true, AlreadyAssigned: true}, nil
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.AssigneeAdded,
		Payload: map[string]any{
			"cardId":     cardID,
			"userId":     userID,
			"boardId":    boardID,
			"assignedAt": now.Format(time.RFC3339),
		},
		Meta: &events.Meta{BoardID: boardID},
	})
	return AssignResult{Assigned: true}, nil
}

// RemoveResult mirrors AssignResult for the removal direction.
type RemoveResult struct {
	Removed bool `json:"removed"`
}

// Unassign removes a user from a card; assignee:removed is published only
// when a row was deleted.
func (s *Assignees) Unassign(ctx context.Context, boardID, cardID, userID string) (RemoveResult, error) {
	deleted, err := s.store.UnassignUser(ctx, cardID, userID)
	if err != nil {
		return RemoveResult{}, err
	}
	if deleted {
		publish(ctx, s.bus, s.logger, events.Event{
			Name: events.AssigneeRemoved,
			Payload: map[string]any{
				"cardId":  cardID,
				"userId":  userID,
				"boardId": boardID,
			},
			Meta: &events.Meta{BoardID: boardID},
		})
	}
	return RemoveResult{Removed: true}, nil
}

// List returns a card's assignees.
func (s *Assignees) List(ctx context.Context, cardID string) ([]string, error) {
	return s.store.Assignees(ctx, cardID)
}
