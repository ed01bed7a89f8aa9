package boards

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Tags manages board tags and their card attachments.
type Tags struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// NewTags creates the tag command service.
func NewTags(store Store, bus events.Bus, logger *log.Logger) *Tags {
	return &Tags{store: store, bus: bus, logger: logger}
}

// Create makes a tag for a board. Labels are unique per board; re-creating
// an existing label refreshes its color and returns the stored tag.
func (s *Tags) Create(ctx context.Context, boardID, label, color string) (domain.Tag, error) {
	tag, err := s.store.UpsertTag(ctx, domain.Tag{
		ID:      uuid.NewString(),
		BoardID: boardID,
		Label:   label,
		Color:   color,
	})
	if err != nil {
		return domain.Tag{}, err
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.TagCreated,
		Payload: map[string]any{
			"tagId":   tag.ID,
			"boardId": tag.BoardID,
			"label":   tag.Label,
			"color":   tag.Color,
		},
		Meta: &events.Meta{BoardID: tag.BoardID},
	})
	return tag, nil
}

// Assign attaches a tag to a card; tag:assigned fires only on the first
// attachment of a given pair.
func (s *Tags) Assign(ctx context.Context, boardID, cardID, tagID string) (AssignResult, error) {
	inserted, err := s.store.AssignTag(ctx, cardID, tagID)
	if err != nil {
		return AssignResult{}, err
	}
	if !inserted {
		return AssignResult{Assigned: true, AlreadyAssigned: true}, nil
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.TagAssigned,
		Payload: map[string]any{
			"tagId":   tagID,
			"cardId":  cardID,
			"boardId": boardID,
		},
		Meta: &events.Meta{BoardID: boardID},
	})
	return AssignResult{Assigned: true}, nil
}

// Unassign detaches a tag from a card.
func (s *Tags) Unassign(ctx context.Context, boardID, cardID, tagID string) (RemoveResult, error) {
	deleted, err := s.store.UnassignTag(ctx, cardID, tagID)
	if err != nil {
		return RemoveResult{}, err
	}
	if deleted {
		publish(ctx, s.bus, s.logger, events.Event{
			Name: events.TagUnassigned,
			Payload: map[string]any{
				"tagId":   tagID,
				"cardId":  cardID,
				"boardId": boardID,
			},
			Meta: &events.Meta{BoardID: boardID},
		})
	}
	return RemoveResult{Removed: true}, nil
}
