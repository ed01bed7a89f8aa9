// Package sessions implements the workspace and session command services.
// Join, leave and member-add follow the idempotent command convention:
// the unique-constrained write decides whether an event is published.
package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Store is the persistence surface the session services need.
type Store interface {
	CreateWorkspace(ctx context.Context, ws domain.Workspace) error
	AddWorkspaceMember(ctx context.Context, workspaceID, userID, addedBy, addedAt string) (bool, error)
	CreateSession(ctx context.Context, sess domain.Session) error
	JoinSession(ctx context.Context, sessionID, userID, joinedAt string) (bool, error)
	LeaveSession(ctx context.Context, sessionID, userID string) (bool, error)
	SessionParticipants(ctx context.Context, sessionID string) ([]string, error)
}

// Service bundles workspace and session commands.
type Service struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// New creates the session command service.
func New(store Store, bus events.Bus, logger *log.Logger) *Service {
	return &Service{store: store, bus: bus, logger: logger}
}

// CreateWorkspace makes a workspace owned by ownerID and publishes
// workspace:created to the new workspace room.
func (s *Service) CreateWorkspace(ctx context.Context, ownerID, name string) (domain.Workspace, error) {
	ws := domain.Workspace{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return domain.Workspace{}, err
	}
	s.publish(ctx, events.Event{
		Name: events.WorkspaceCreated,
		Payload: map[string]any{
			"workspaceId": ws.ID,
			"ownerId":     ws.OwnerID,
			"name":        ws.Name,
		},
		Meta: &events.Meta{WorkspaceID: ws.ID},
	})
	return ws, nil
}

// MemberResult is the API outcome of AddMember; Added is true even when the
// user was already a member.
type MemberResult struct {
	Added         bool `json:"added"`
	AlreadyMember bool `json:"alreadyMember,omitempty"`
}

// AddMember adds a user to a workspace. workspace:memberAdded is published
// only when the membership row was inserted.
func (s *Service) AddMember(ctx context.Context, workspaceID, userID, addedBy string) (MemberResult, error) {
	now := time.Now().UTC()
	inserted, err := s.store.AddWorkspaceMember(ctx, workspaceID, userID, addedBy, now.Format(time.RFC3339Nano))
	if err != nil {
		return MemberResult{}, err
	}
	if !inserted {
		return MemberResult{Added: true, AlreadyMember: true}, nil
	}
	s.publish(ctx, events.Event{
		Name: events.WorkspaceMemberAdded,
		Payload: map[string]any{
			"workspaceId": workspaceID,
			"userId":      userID,
			"addedBy":     addedBy,
		},
		Meta: &events.Meta{WorkspaceID: workspaceID},
	})
	return MemberResult{Added: true}, nil
}

// CreateSession makes a session inside a workspace.
func (s *Service) CreateSession(ctx context.Context, workspaceID, title string) (domain.Session, error) {
	sess := domain.Session{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Title:       title,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}
	s.publish(ctx, events.Event{
		Name: events.SessionCreated,
		Payload: map[string]any{
			"sessionId":   sess.ID,
			"workspaceId": sess.WorkspaceID,
			"title":       sess.Title,
		},
		Meta: &events.Meta{WorkspaceID: sess.WorkspaceID},
	})
	return sess, nil
}

// JoinResult is the API outcome of Join; Joined is true on duplicates too.
type JoinResult struct {
	Joined bool `json:"joined"`
}

// Join records a session participant. Rejoining succeeds without a second
// session:user_joined event.
func (s *Service) Join(ctx context.Context, sessionID, workspaceID, userID string) (JoinResult, error) {
	now := time.Now().UTC()
	inserted, err := s.store.JoinSession(ctx, sessionID, userID, now.Format(time.RFC3339Nano))
	if err != nil {
		return JoinResult{}, err
	}
	if inserted {
		s.publish(ctx, events.Event{
			Name: events.SessionUserJoined,
			Payload: map[string]any{
				"sessionId":   sessionID,
				"userId":      userID,
				"workspaceId": workspaceID,
			},
			Meta: &events.Meta{WorkspaceID: workspaceID, SessionID: sessionID},
		})
	}
	return JoinResult{Joined: true}, nil
}

// LeaveResult is the API outcome of Leave.
type LeaveResult struct {
	Left bool `json:"left"`
}

// Leave removes a participant; session:user_left fires only when a
// participation row existed.
func (s *Service) Leave(ctx context.Context, sessionID, workspaceID, userID string) (LeaveResult, error) {
	deleted, err := s.store.LeaveSession(ctx, sessionID, userID)
	if err != nil {
		return LeaveResult{}, err
	}
	if deleted {
		s.publish(ctx, events.Event{
			Name: events.SessionUserLeft,
			Payload: map[string]any{
				"sessionId":   sessionID,
				"userId":      userID,
				"workspaceId": workspaceID,
			},
			Meta: &events.Meta{WorkspaceID: workspaceID, SessionID: sessionID},
		})
	}
	return LeaveResult{Left: true}, nil
}

// Participants lists a session's recorded participants.
func (s *Service) Participants(ctx context.Context, sessionID string) ([]string, error) {
	return s.store.SessionParticipants(ctx, sessionID)
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Errorf("publish %s: %v", ev.Name, err)
	}
}
