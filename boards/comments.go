package boards

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Comments manages per-card comment threads.
type Comments struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// NewComments creates the comment command service.
func NewComments(store Store, bus events.Bus, logger *log.Logger) *Comments {
	return &Comments{store: store, bus: bus, logger: logger}
}

// Create persists a comment and publishes comment:created to the board room.
func (s *Comments) Create(ctx context.Context, boardID, cardID, userID, content string) (domain.Comment, error) {
	comment := domain.Comment{
		ID:        uuid.NewString(),
		CardID:    cardID,
		BoardID:   boardID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return domain.Comment{}, err
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.CommentCreated,
		Payload: map[string]any{
			"commentId": comment.ID,
			"cardId":    comment.CardID,
			"boardId":   comment.BoardID,
			"userId":    comment.UserID,
			"content":   comment.Content,
			"createdAt": comment.CreatedAt.Format(time.RFC3339),
		},
		Meta: &events.Meta{BoardID: comment.BoardID},
	})
	return comment, nil
}

// List returns a card's comments, oldest first.
func (s *Comments) List(ctx context.Context, cardID string, limit int) ([]domain.Comment, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListComments(ctx, cardID, limit)
}

// Delete removes the caller's own comment and publishes comment:deleted to
// the board it was on.
func (s *Comments) Delete(ctx context.Context, commentID, userID string) error {
	cardID, boardID, err := s.store.DeleteComment(ctx, commentID, userID)
	if err != nil {
		return err
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.CommentDeleted,
		Payload: map[string]any{
			"commentId": commentID,
			"cardId":    cardID,
			"userId":    userID,
		},
		Meta: &events.Meta{BoardID: boardID},
	})
	return nil
}
