package realtime

import (
	"sort"
	"sync"
)

// Presence tracks which users are represented by at least one live
// connection in each room. Membership is reference counted per (room, user)
// so a user with two sockets in the same room stays present until the last
// one leaves. State is process-local: a replica only knows about its own
// sockets.
type Presence struct {
	mu    sync.Mutex
	rooms map[string]map[string]int
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{rooms: make(map[string]map[string]int)}
}

// Add records one connection of userID in room and returns the room's user
// list after the change. The returned slice is a sorted copy safe to emit
// without holding any lock.
func (p *Presence) Add(room, userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.rooms[room]
	if !ok {
		users = make(map[string]int)
		p.rooms[room] = users
	}
	users[userID]++
	return snapshot(users)
}

// Remove drops one connection of userID from room and returns the user list
// after the change. The room entry is deleted once its last user leaves, so
// idle rooms do not accumulate.
func (p *Presence) Remove(room, userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.rooms[room]
	if !ok {
		return []string{}
	}
	if n := users[userID]; n <= 1 {
		delete(users, userID)
	} else {
		users[userID] = n - 1
	}
	if len(users) == 0 {
		delete(p.rooms, room)
		return []string{}
	}
	return snapshot(users)
}

// Users returns the current user list of a room.
func (p *Presence) Users(room string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return snapshot(p.rooms[room])
}

// Tracked reports whether the room has a presence entry at all. Used to
// verify empty rooms are garbage collected.
func (p *Presence) Tracked(room string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.rooms[room]
	return ok
}

func snapshot(users map[string]int) []string {
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
