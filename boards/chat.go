package boards

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Chat manages per-board chat messages.
type Chat struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// NewChat creates the chat command service.
func NewChat(store Store, bus events.Bus, logger *log.Logger) *Chat {
	return &Chat{store: store, bus: bus, logger: logger}
}

// Send persists a chat message and publishes chat:message:sent to the board.
func (s *Chat) Send(ctx context.Context, boardID, userID, content string) (domain.ChatMessage, error) {
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		BoardID:   boardID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateChatMessage(ctx, msg); err != nil {
		return domain.ChatMessage{}, err
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.ChatMessageSent,
		Payload: map[string]any{
			"id":        msg.ID,
			"boardId":   msg.BoardID,
			"userId":    msg.UserID,
			"content":   msg.Content,
			"createdAt": msg.CreatedAt.Format(time.RFC3339),
		},
		Meta: &events.Meta{BoardID: msg.BoardID},
	})
	return msg, nil
}

// List returns the latest messages of a board, oldest first.
func (s *Chat) List(ctx context.Context, boardID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListChatMessages(ctx, boardID, limit)
}

// Delete removes the caller's own message and publishes
// chat:message:deleted to the board it was on.
func (s *Chat) Delete(ctx context.Context, messageID, userID string) error {
	boardID, err := s.store.DeleteChatMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name: events.ChatMessageDeleted,
		Payload: map[string]any{
			"messageId": messageID,
			"userId":    userID,
		},
		Meta: &events.Meta{BoardID: boardID},
	})
	return nil
}
