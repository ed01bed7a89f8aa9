package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dest92/agora-backend/domain"
)

// CreateChatMessage inserts a board chat message.
func (s *Store) CreateChatMessage(ctx context.Context, msg domain.ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, board_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.BoardID, msg.UserID, msg.Content, encodeTime(msg.CreatedAt))
	return err
}

// ListChatMessages returns the newest messages of a board, oldest first.
func (s *Store) ListChatMessages(ctx context.Context, boardID string, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, user_id, content, created_at FROM (
			SELECT id, board_id, user_id, content, created_at
			FROM chat_messages WHERE board_id = ?
			ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at`, boardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	msgs := []domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		var created string
		if err := rows.Scan(&m.ID, &m.BoardID, &m.UserID, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = decodeTime(created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteChatMessage removes a message if it belongs to userID and returns
// the board it was on. ErrNotFound covers both a missing message and one
// owned by somebody else.
func (s *Store) DeleteChatMessage(ctx context.Context, messageID, userID string) (string, error) {
	var boardID string
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM chat_messages WHERE id = ? AND user_id = ?
		RETURNING board_id`, messageID, userID).Scan(&boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return boardID, err
}

// CreateNotification persists a notification row.
func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, encodeTime(n.CreatedAt))
	return err
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, body, read, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		var read int
		var created string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &read, &created); err != nil {
			return nil, err
		}
		n.Read = read != 0
		n.CreatedAt = decodeTime(created)
		out = append(out, n)
	}
	return out, rows.Err()
}
