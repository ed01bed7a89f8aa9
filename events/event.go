package events

import (
	"strings"
	"time"
)

// Meta carries the routing metadata of a domain event. Whatever IDs are set
// determine which rooms the gateway broadcasts the event to.
type Meta struct {
	BoardID     string    `json:"boardId,omitempty"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	SessionID   string    `json:"sessionId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Event is the canonical notification a domain service publishes after a
// state change. Events are ephemeral: constructed, published, delivered,
// discarded. Name is namespaced "<category>:<verb>", e.g. "card:created".
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Category returns the routing key of the event: the substring of the name
// before the first colon, or the whole name when it has no namespace.
func (e Event) Category() string {
	if i := strings.Index(e.Name, ":"); i >= 0 {
		return e.Name[:i]
	}
	return e.Name
}
