package realtime

import (
	"context"
	"encoding/json"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dest92/agora-backend/events"
	"github.com/dest92/agora-backend/internal/consts"
)

// RoomScope names the rooms a connection wants to be part of. All fields are
// optional; whichever are set map to one room each.
type RoomScope struct {
	BoardID     string `json:"boardId,omitempty"`
	WorkspaceID string `json:"workspaceId,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

func (s RoomScope) roomKeys() []string {
	keys := make([]string, 0, 3)
	if s.BoardID != "" {
		keys = append(keys, consts.RoomBoardPrefix+s.BoardID)
	}
	if s.WorkspaceID != "" {
		keys = append(keys, consts.RoomWorkspacePrefix+s.WorkspaceID)
	}
	if s.SessionID != "" {
		keys = append(keys, consts.RoomSessionPrefix+s.SessionID)
	}
	return keys
}

// Hub owns every live socket of this process together with room membership
// and presence. It receives domain events from the bus and turns them into
// room-scoped broadcasts. All maps are guarded by mu; socket writes happen
// outside the lock against copied member lists.
type Hub struct {
	logger   *log.Logger
	presence *Presence

	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:   logger,
		presence: NewPresence(),
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
	}
}

// Register wires the hub into the bus: room-scoped categories route by event
// meta, notifications route by recipient.
func (h *Hub) Register(bus events.Bus) {
	for _, category := range events.RoomCategories {
		bus.Subscribe(category, h.HandleEvent)
	}
	bus.Subscribe(events.NotificationCategory, h.HandleNotification)
}

// Presence exposes the tracker for read-side queries.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// Connect registers a freshly accepted socket and joins it to the rooms
// named in the handshake scope.
func (h *Hub) Connect(c *Client, scope RoomScope) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.Join(c, scope)
	h.logger.Debugf("socket %s connected (user %q)", c.ID, c.UserID)
}

// Join adds the socket to each room in scope, updating presence and
// broadcasting a fresh snapshot to every room that gained a member.
func (h *Hub) Join(c *Client, scope RoomScope) {
	for _, room := range scope.roomKeys() {
		h.mu.Lock()
		if _, member := c.rooms[room]; member {
			h.mu.Unlock()
			continue
		}
		c.rooms[room] = struct{}{}
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Client]struct{})
			h.rooms[room] = members
		}
		members[c] = struct{}{}
		h.mu.Unlock()

		if c.UserID != "" {
			users := h.presence.Add(room, c.UserID)
			h.broadcastPresence(room, users)
		}
	}
}

// Leave removes the socket from each room in scope with the same presence
// bookkeeping as a disconnect, without closing the connection.
func (h *Hub) Leave(c *Client, scope RoomScope) {
	for _, room := range scope.roomKeys() {
		h.mu.Lock()
		if _, member := c.rooms[room]; !member {
			h.mu.Unlock()
			continue
		}
		delete(c.rooms, room)
		h.detachLocked(c, room)
		h.mu.Unlock()

		if c.UserID != "" {
			users := h.presence.Remove(room, c.UserID)
			h.broadcastPresence(room, users)
		}
	}
}

// Disconnect tears the socket down: it leaves every room it was a member of
// (from the socket's own recorded list, never by scanning all rooms) and is
// forgotten by the hub.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	if _, known := h.clients[c]; !known {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	left := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		delete(c.rooms, room)
		h.detachLocked(c, room)
		left = append(left, room)
	}
	h.mu.Unlock()

	for _, room := range left {
		if c.UserID != "" {
			users := h.presence.Remove(room, c.UserID)
			h.broadcastPresence(room, users)
		}
	}
	close(c.done)
	h.logger.Debugf("socket %s disconnected (user %q)", c.ID, c.UserID)
}

// detachLocked removes the socket from a room's member set and deletes the
// set when it empties. Caller holds h.mu.
func (h *Hub) detachLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// HandleEvent routes one domain event to the rooms named by its meta and
// emits the raw event (name and payload, no added envelope) to each.
func (h *Hub) HandleEvent(ctx context.Context, ev events.Event) {
	if ev.Meta == nil {
		return
	}
	scope := RoomScope{
		BoardID:     ev.Meta.BoardID,
		WorkspaceID: ev.Meta.WorkspaceID,
		SessionID:   ev.Meta.SessionID,
	}
	rooms := scope.roomKeys()
	if len(rooms) == 0 {
		return
	}
	msg, err := encodeFrame(ev.Name, ev.Payload)
	if err != nil {
		h.logger.Errorf("gateway: encode %s: %v", ev.Name, err)
		return
	}
	for _, room := range rooms {
		h.broadcast(room, msg)
	}
}

// HandleNotification delivers a personal notification to every socket of the
// recipient named inside the payload. This scans all live connections, which
// is linear in the connection count; fine at this system's scale, revisit
// with a userID index if that changes.
func (h *Hub) HandleNotification(ctx context.Context, ev events.Event) {
	recipient := recipientID(ev.Payload)
	if recipient == "" {
		return
	}
	msg, err := encodeFrame(ev.Name, ev.Payload)
	if err != nil {
		h.logger.Errorf("gateway: encode %s: %v", ev.Name, err)
		return
	}
	h.mu.Lock()
	targets := make([]*Client, 0, 2)
	for c := range h.clients {
		if c.UserID == recipient {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	for _, c := range targets {
		h.deliver(c, msg)
	}
}

func recipientID(payload any) string {
	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	id, _ := obj["recipientId"].(string)
	return id
}

// broadcast emits a prepared frame to every current member of a room. The
// member list is copied under the lock; writes happen outside it.
func (h *Hub) broadcast(room string, msg []byte) {
	h.mu.Lock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.Unlock()
	for _, c := range members {
		h.deliver(c, msg)
	}
}

func (h *Hub) broadcastPresence(room string, users []string) {
	msg, err := encodeFrame(consts.PresenceUpdate, map[string]any{"users": users})
	if err != nil {
		h.logger.Errorf("gateway: encode presence: %v", err)
		return
	}
	h.broadcast(room, msg)
}

// deliver hands a frame to one socket without blocking: a client that cannot
// keep up has frames dropped rather than stalling the dispatch path.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warnf("gateway: slow socket %s, dropping frame", c.ID)
	}
}

// frame is the wire shape of every gateway-to-client message: the event name
// and its payload, nothing else.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Event: name, Data: data})
}
