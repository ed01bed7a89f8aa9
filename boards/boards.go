// Package boards implements the board-scoped command services. Every
// command follows the same convention: perform the write, publish a domain
// event only when the write reports a real state transition, and answer the
// caller with success no matter which branch ran. Publishing is best-effort;
// a failed publish is logged and the write stands.
package boards

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Store is the persistence surface the board services need.
type Store interface {
	CreateBoard(ctx context.Context, b domain.Board) error
	GetBoard(ctx context.Context, boardID string) (domain.Board, error)
	ListBoards(ctx context.Context, workspaceID string) ([]domain.Board, error)
	CreateLane(ctx context.Context, lane domain.Lane) error
	ListLanes(ctx context.Context, boardID string) ([]domain.Lane, error)

	CreateCard(ctx context.Context, card domain.Card) error
	UpdateCard(ctx context.Context, cardID, boardID string, upd domain.CardUpdate, now string) (string, domain.Card, error)
	SetCardArchived(ctx context.Context, cardID, boardID string, archived bool, now string) (bool, error)
	ListCards(ctx context.Context, boardID string) ([]domain.Card, error)

	AssignUser(ctx context.Context, cardID, userID, assignedAt string) (bool, error)
	UnassignUser(ctx context.Context, cardID, userID string) (bool, error)
	Assignees(ctx context.Context, cardID string) ([]string, error)

	UpsertTag(ctx context.Context, tag domain.Tag) (domain.Tag, error)
	AssignTag(ctx context.Context, cardID, tagID string) (bool, error)
	UnassignTag(ctx context.Context, cardID, tagID string) (bool, error)

	SwapVote(ctx context.Context, cardID, voterID string, weight int, createdAt string) (int, error)
	VoteSummary(ctx context.Context, cardID string) (domain.VoteSummary, error)
	UserVote(ctx context.Context, cardID, voterID string) (int, error)

	CreateComment(ctx context.Context, c domain.Comment) error
	ListComments(ctx context.Context, cardID string, limit int) ([]domain.Comment, error)
	DeleteComment(ctx context.Context, commentID, userID string) (cardID, boardID string, err error)

	CreateChatMessage(ctx context.Context, msg domain.ChatMessage) error
	ListChatMessages(ctx context.Context, boardID string, limit int) ([]domain.ChatMessage, error)
	DeleteChatMessage(ctx context.Context, messageID, userID string) (string, error)
}

// Cards mutates cards and announces the changes.
type Cards struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// NewCards creates the card command service.
func NewCards(store Store, bus events.Bus, logger *log.Logger) *Cards {
	return &Cards{store: store, bus: bus, logger: logger}
}

// CreateCardInput carries the fields of a new card.
type CreateCardInput struct {
	BoardID  string
	AuthorID string
	Content  string
	Priority string
	Position int
	LaneID   string
}

// Create persists a new card and publishes card:created.
func (s *Cards) Create(ctx context.Context, in CreateCardInput) (domain.Card, error) {
	now := time.Now().UTC()
	if in.Priority == "" {
		in.Priority = "medium"
	}
	card := domain.Card{
		ID:        uuid.NewString(),
		BoardID:   in.BoardID,
		LaneID:    in.LaneID,
		AuthorID:  in.AuthorID,
		Content:   in.Content,
		Priority:  in.Priority,
		Position:  in.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return domain.Card{}, err
	}
	s.publish(ctx, events.Event{
		Name: events.CardCreated,
		Payload: map[string]any{
			"cardId":    card.ID,
			"boardId":   card.BoardID,
			"content":   card.Content,
			"authorId":  card.AuthorID,
			"priority":  card.Priority,
			"position":  card.Position,
			"createdAt": card.CreatedAt.Format(time.RFC3339),
		},
		Meta: &events.Meta{BoardID: card.BoardID},
	})
	return card, nil
}

// Update edits a card in place. Moving it to another lane publishes
// card:moved instead of card:updated.
func (s *Cards) Update(ctx context.Context, cardID, boardID string, upd domain.CardUpdate) (domain.Card, error) {
	now := time.Now().UTC()
	previousLane, card, err := s.store.UpdateCard(ctx, cardID, boardID, upd, now.Format(time.RFC3339Nano))
	if err != nil {
		return domain.Card{}, err
	}
	name := events.CardUpdated
	if upd.LaneID != nil && *upd.LaneID != previousLane {
		name = events.CardMoved
	}
	s.publish(ctx, events.Event{
		Name: name,
		Payload: map[string]any{
			"cardId":    card.ID,
			"boardId":   card.BoardID,
			"laneId":    card.LaneID,
			"priority":  card.Priority,
			"position":  card.Position,
			"content":   card.Content,
			"archived":  false,
			"updatedAt": card.UpdatedAt.Format(time.RFC3339),
		},
		Meta: &events.Meta{BoardID: card.BoardID},
	})
	return card, nil
}

// Archive hides a card from the board. Archiving an already archived card is
// a quiet no-op.
func (s *Cards) Archive(ctx context.Context, cardID, boardID string) error {
	return s.setArchived(ctx, cardID, boardID, true, events.CardArchived)
}

// Unarchive restores an archived card.
func (s *Cards) Unarchive(ctx context.Context, cardID, boardID string) error {
	return s.setArchived(ctx, cardID, boardID, false, events.CardUnarchived)
}

func (s *Cards) setArchived(ctx context.Context, cardID, boardID string, archived bool, name string) error {
	now := time.Now().UTC()
	changed, err := s.store.SetCardArchived(ctx, cardID, boardID, archived, now.Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	if changed {
		s.publish(ctx, events.Event{
			Name:    name,
			Payload: map[string]any{"cardId": cardID, "boardId": boardID},
			Meta:    &events.Meta{BoardID: boardID},
		})
	}
	return nil
}

// List returns a board's active cards.
func (s *Cards) List(ctx context.Context, boardID string) ([]domain.Card, error) {
	return s.store.ListCards(ctx, boardID)
}

func (s *Cards) publish(ctx context.Context, ev events.Event) {
	publish(ctx, s.bus, s.logger, ev)
}

// publish sends an event without coupling the write to its delivery: a
// transport failure is surfaced in the log, never to the command's caller.
func publish(ctx context.Context, bus events.Bus, logger *log.Logger, ev events.Event) {
	if err := bus.Publish(ctx, ev); err != nil {
		logger.Errorf("publish %s: %v", ev.Name, err)
	}
}
