package boards

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/domain"
	"github.com/dest92/agora-backend/events"
)

// Votes implements the toggling vote command. Unlike the pure idempotent
// commands, every call changes recorded state and therefore publishes
// exactly one event: casting the same vote twice removes it, casting the
// opposite vote flips it.
type Votes struct {
	store  Store
	bus    events.Bus
	logger *log.Logger
}

// NewVotes creates the vote command service.
func NewVotes(store Store, bus events.Bus, logger *log.Logger) *Votes {
	return &Votes{store: store, bus: bus, logger: logger}
}

// VoteResult describes the transition the call produced.
type VoteResult struct {
	Action   string             `json:"action"` // added, changed, removed
	VoteType string             `json:"voteType,omitempty"`
	Summary  domain.VoteSummary `json:"summary"`
}

// voteTransition maps (previous weight, intended weight) to the action
// taken and the final recorded weight. previous 0 means no vote on record.
func voteTransition(previous, intent int) (action string, final int) {
	switch previous {
	case 0:
		return "added", intent
	case intent:
		return "removed", 0
	default:
		return "changed", intent
	}
}

func weightOf(voteType string) (int, error) {
	switch voteType {
	case "up":
		return domain.VoteUp, nil
	case "down":
		return domain.VoteDown, nil
	default:
		return 0, fmt.Errorf("invalid vote type %q", voteType)
	}
}

func typeOf(weight int) string {
	switch {
	case weight > 0:
		return "up"
	case weight < 0:
		return "down"
	default:
		return ""
	}
}

// Cast applies one vote intent ("up" or "down") for voterID on a card and
// publishes vote:changed describing the resulting transition.
func (s *Votes) Cast(ctx context.Context, boardID, cardID, voterID, voteType string) (VoteResult, error) {
	weight, err := weightOf(voteType)
	if err != nil {
		return VoteResult{}, err
	}
	now := time.Now().UTC()
	previous, err := s.store.SwapVote(ctx, cardID, voterID, weight, now.Format(time.RFC3339Nano))
	if err != nil {
		return VoteResult{}, err
	}
	action, final := voteTransition(previous, weight)

	summary, err := s.store.VoteSummary(ctx, cardID)
	if err != nil {
		return VoteResult{}, err
	}
	result := VoteResult{Action: action, VoteType: typeOf(final), Summary: summary}

	payload := map[string]any{
		"cardId":  cardID,
		"voterId": voterID,
		"action":  action,
		"summary": summary,
	}
	if result.VoteType != "" {
		payload["voteType"] = result.VoteType
	} else {
		payload["voteType"] = nil
	}
	publish(ctx, s.bus, s.logger, events.Event{
		Name:    events.VoteChanged,
		Payload: payload,
		Meta:    &events.Meta{BoardID: boardID},
	})
	return result, nil
}

// Summary returns the current vote counts of a card.
func (s *Votes) Summary(ctx context.Context, cardID string) (domain.VoteSummary, error) {
	return s.store.VoteSummary(ctx, cardID)
}

// UserVote reports the caller's current vote on a card: "up", "down" or ""
// when no vote is recorded.
func (s *Votes) UserVote(ctx context.Context, cardID, voterID string) (string, error) {
	weight, err := s.store.UserVote(ctx, cardID, voterID)
	if err != nil {
		return "", err
	}
	return typeOf(weight), nil
}
