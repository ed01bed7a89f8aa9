package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dest92/agora-backend/domain"
)

// CreateBoard inserts a board row.
func (s *Store) CreateBoard(ctx context.Context, b domain.Board) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boards (id, workspace_id, name, owner_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.WorkspaceID, b.Name, b.OwnerID, encodeTime(b.CreatedAt))
	return err
}

// GetBoard fetches a single board.
func (s *Store) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	var b domain.Board
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, name, owner_id, created_at FROM boards WHERE id = ?`,
		boardID).Scan(&b.ID, &b.WorkspaceID, &b.Name, &b.OwnerID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, ErrNotFound
	}
	if err != nil {
		return domain.Board{}, err
	}
	b.CreatedAt = decodeTime(created)
	return b, nil
}

// ListBoards returns boards in creation order. An empty workspaceID lists
// every board.
func (s *Store) ListBoards(ctx context.Context, workspaceID string) ([]domain.Board, error) {
	query := `SELECT id, workspace_id, name, owner_id, created_at FROM boards ORDER BY created_at`
	args := []any{}
	if workspaceID != "" {
		query = `SELECT id, workspace_id, name, owner_id, created_at FROM boards WHERE workspace_id = ? ORDER BY created_at`
		args = append(args, workspaceID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	boards := []domain.Board{}
	for rows.Next() {
		var b domain.Board
		var created string
		if err := rows.Scan(&b.ID, &b.WorkspaceID, &b.Name, &b.OwnerID, &created); err != nil {
			return nil, err
		}
		b.CreatedAt = decodeTime(created)
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// CreateLane inserts a lane row.
func (s *Store) CreateLane(ctx context.Context, lane domain.Lane) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lanes (id, board_id, title, position)
		VALUES (?, ?, ?, ?)`,
		lane.ID, lane.BoardID, lane.Title, lane.Position)
	return err
}

// ListLanes returns a board's lanes ordered by position.
func (s *Store) ListLanes(ctx context.Context, boardID string) ([]domain.Lane, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, board_id, title, position FROM lanes WHERE board_id = ? ORDER BY position`,
		boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lanes := []domain.Lane{}
	for rows.Next() {
		var l domain.Lane
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position); err != nil {
			return nil, err
		}
		lanes = append(lanes, l)
	}
	return lanes, rows.Err()
}

// CreateComment inserts a card comment.
func (s *Store) CreateComment(ctx context.Context, c domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, card_id, board_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.CardID, c.BoardID, c.UserID, c.Content, encodeTime(c.CreatedAt))
	return err
}

// ListComments returns a card's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, cardID string, limit int) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, board_id, user_id, content, created_at
		FROM comments WHERE card_id = ?
		ORDER BY created_at LIMIT ?`, cardID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	comments := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		var created string
		if err := rows.Scan(&c.ID, &c.CardID, &c.BoardID, &c.UserID, &c.Content, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = decodeTime(created)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment if it belongs to userID and returns the
// comment's card and board. ErrNotFound covers both a missing comment and
// one owned by somebody else.
func (s *Store) DeleteComment(ctx context.Context, commentID, userID string) (cardID, boardID string, err error) {
	err = s.db.QueryRowContext(ctx, `
		DELETE FROM comments WHERE id = ? AND user_id = ?
		RETURNING card_id, board_id`, commentID, userID).Scan(&cardID, &boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return cardID, boardID, err
}
