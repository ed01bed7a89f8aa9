// Package storage persists the workspace state in SQLite. Every write that
// backs an idempotent command uses a natural-key constraint with
// ON CONFLICT DO NOTHING so duplicates report zero affected rows instead of
// failing.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS boards (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL,
	owner_id     TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lanes (
	id       TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	title    TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_lanes_board ON lanes(board_id);

CREATE TABLE IF NOT EXISTS cards (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL,
	lane_id    TEXT NOT NULL DEFAULT '',
	author_id  TEXT NOT NULL,
	content    TEXT NOT NULL,
	priority   TEXT NOT NULL DEFAULT 'medium',
	position   INTEGER NOT NULL DEFAULT 0,
	archived   INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_board ON cards(board_id);

CREATE TABLE IF NOT EXISTS card_assignees (
	card_id     TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	assigned_at TEXT NOT NULL,
	PRIMARY KEY (card_id, user_id)
);

CREATE TABLE IF NOT EXISTS votes (
	card_id    TEXT NOT NULL,
	voter_id   TEXT NOT NULL,
	weight     INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (card_id, voter_id)
);

CREATE TABLE IF NOT EXISTS tags (
	id       TEXT PRIMARY KEY,
	board_id TEXT NOT NULL,
	label    TEXT NOT NULL,
	color    TEXT NOT NULL DEFAULT '',
	UNIQUE (board_id, label)
);

CREATE TABLE IF NOT EXISTS card_tags (
	card_id TEXT NOT NULL,
	tag_id  TEXT NOT NULL,
	PRIMARY KEY (card_id, tag_id)
);

CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_by TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS workspace_members (
	workspace_id TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	added_by     TEXT NOT NULL,
	added_at     TEXT NOT NULL,
	PRIMARY KEY (workspace_id, user_id)
);

CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_participants (
	session_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	joined_at  TEXT NOT NULL,
	PRIMARY KEY (session_id, user_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	card_id    TEXT NOT NULL,
	board_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_card ON comments(card_id, created_at);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_board ON chat_messages(board_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite returns SQLITE_BUSY under concurrent writers; a single
	// pooled connection serializes them.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping probes database liveness for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// insertIgnore runs an INSERT ... ON CONFLICT DO NOTHING statement and
// reports whether a row was actually written. This is the primitive behind
// every idempotent command: zero affected rows means "already true".
func (s *Store) insertIgnore(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
