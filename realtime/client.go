package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one live socket: its identity, its outbound queue and the rooms
// it currently belongs to. The rooms map is owned by the hub and only
// touched under the hub lock.
type Client struct {
	ID     string
	UserID string

	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	rooms map[string]struct{}
}

// NewClient wraps an upgraded connection. userID may be empty for an
// unauthenticated observer; such sockets receive broadcasts but never count
// toward presence.
func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// Rooms returns a copy of the socket's current room list. Test helper.
func (c *Client) Rooms(h *Hub) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		out = append(out, room)
	}
	return out
}

// Run services the socket until it drops, then detaches it from the hub.
// It starts the write pump and blocks on the read loop.
func (c *Client) Run(h *Hub) {
	go c.writePump()
	c.readPump(h)
	h.Disconnect(c)
}

// readPump consumes inbound control frames. Clients may send join and leave
// messages to change room membership mid-connection; anything else is
// ignored.
func (c *Client) readPump(h *Hub) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		var scope RoomScope
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, &scope); err != nil {
				continue
			}
		}
		switch f.Event {
		case "join":
			h.Join(c, scope)
		case "leave":
			h.Leave(c, scope)
		}
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings. It exits when the hub marks the socket done or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
