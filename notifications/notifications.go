// Package notifications turns selected domain events into personal
// notifications. It is an independent bus consumer: it persists a
// notification row, then republishes it as a notification:created event
// whose payload carries the recipientId the gateway targets.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Store is the persistence surface the notification service needs.
type Store interface {
	CreateNotification(ctx context.Context, n domain.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	GetCard(ctx context.Context, cardID string) (domain.Card, error)
	WorkspaceName(ctx context.Context, workspaceID string) (string, error)
}

// Service consumes domain events and produces notifications.
type Service struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// New creates the notification service.
func New(store Store, bus events.Bus, logger *log.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// Register subscribes the service to the categories it reacts to.
func (s *Service) Register(bus events.Bus) {
	bus.Subscribe("assignee", s.HandleEvent)
	bus.Subscribe("comment", s.HandleEvent)
	bus.Subscribe("workspace", s.HandleEvent)
}

// HandleEvent dispatches on the event name; unrecognized events are ignored.
func (s *Service) HandleEvent(ctx context.Context, ev events.Event) {
	var err error
	switch ev.Name {
	case events.AssigneeAdded:
		err = s.handleAssigneeAdded(ctx, ev)
	case events.CommentCreated:
		err = s.handleCommentCreated(ctx, ev)
	case events.WorkspaceMemberAdded:
		err = s.handleMemberAdded(ctx, ev)
	default:
		return
	}
	if err != nil {
		s.logger.Errorf("notifications: %s: %v", ev.Name, err)
	}
}

// List returns a user's stored notifications.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListNotifications(ctx, userID, limit)
}

func (s *Service) handleAssigneeAdded(ctx context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected payload shape %T", ev.Payload)
	}
	userID, _ := payload["userId"].(string)
	cardID, _ := payload["cardId"].(string)
	if userID == "" || cardID == "" {
		return nil
	}

	body := "You were assigned to a card"
	if card, err := s.store.GetCard(ctx, cardID); err == nil {
		body = fmt.Sprintf("You were assigned to %q", preview(card.Content))
	}
	return s.create(ctx, domain.Notification{
		UserID: userID,
		Type:   "assignment",
		Title:  "New card assignment",
		Body:   body,
	}, map[string]any{"cardId": cardID})
}

// handleCommentCreated notifies the card's author about a new comment on
// their card. The author commenting on their own card stays silent.
func (s *Service) handleCommentCreated(ctx context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected payload shape %T", ev.Payload)
	}
	commenterID, _ := payload["userId"].(string)
	cardID, _ := payload["cardId"].(string)
	if commenterID == "" || cardID == "" {
		return nil
	}

	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return err
	}
	if card.AuthorID == "" || card.AuthorID == commenterID {
		return nil
	}
	return s.create(ctx, domain.Notification{
		UserID: card.AuthorID,
		Type:   "comment",
		Title:  "New comment on your card",
		Body:   fmt.Sprintf("Someone commented on %q", preview(card.Content)),
	}, map[string]any{"cardId": cardID})
}

func (s *Service) handleMemberAdded(ctx context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected payload shape %T", ev.Payload)
	}
	userID, _ := payload["userId"].(string)
	addedBy, _ := payload["addedBy"].(string)
	workspaceID, _ := payload["workspaceId"].(string)
	if userID == "" || workspaceID == "" || userID == addedBy {
		return nil
	}

	name := workspaceID
	if n, err := s.store.WorkspaceName(ctx, workspaceID); err == nil {
		name = n
	}
	return s.create(ctx, domain.Notification{
		UserID: userID,
		Type:   "workspace_invitation",
		Title:  fmt.Sprintf("Invited to workspace: %s", name),
		Body:   fmt.Sprintf("You can now access all boards in %q", name),
	}, map[string]any{"workspaceId": workspaceID, "workspaceName": name})
}

// create persists the notification and republishes it for realtime
// delivery. The recipient goes inside the payload so the meta shape stays
// room-oriented.
func (s *Service) create(ctx context.Context, n domain.Notification, extra map[string]any) error {
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	payload := map[string]any{
		"id":          n.ID,
		"recipientId": n.UserID,
		"type":        n.Type,
		"title":       n.Title,
		"body":        n.Body,
		"createdAt":   n.CreatedAt.Format(time.RFC3339),
	}
	for k, v := range extra {
		payload[k] = v
	}
	return s.bus.Publish(ctx, events.Event{
		Name:    events.NotificationCreated,
		Payload: payload,
	})
}

func preview(content string) string {
	const max = 80
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}
