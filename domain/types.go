// Package domain defines the entities shared by the command services and
// the storage layer.
package domain

import "time"

type Board struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	Name        string    `json:"name"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Lane struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

type Card struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	LaneID    string    `json:"laneId,omitempty"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Priority  string    `json:"priority"`
	Position  int       `json:"position"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CardUpdate carries the mutable card fields; nil means unchanged.
type CardUpdate struct {
	Content  *string `json:"content"`
	LaneID   *string `json:"laneId"`
	Priority *string `json:"priority"`
	Position *int    `json:"position"`
}

type Tag struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Label   string `json:"label"`
	Color   string `json:"color,omitempty"`
}

// VoteWeight encodes a recorded vote: +1 up, -1 down. The absence of a row
// is the third state ("none").
const (
	VoteUp   = 1
	VoteDown = -1
)

type VoteSummary struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Total     int `json:"total"`
}

type Workspace struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	CardID    string    `json:"cardId"`
	BoardID   string    `json:"boardId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
