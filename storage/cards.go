package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dest92/agora-backend/domain"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// CreateCard inserts a new card.
func (s *Store) CreateCard(ctx context.Context, card domain.Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (id, board_id, lane_id, author_id, content, priority, position, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		card.ID, card.BoardID, card.LaneID, card.AuthorID, card.Content,
		card.Priority, card.Position, encodeTime(card.CreatedAt), encodeTime(card.UpdatedAt))
	return err
}

// UpdateCard applies the non-nil fields of upd to a card and returns the
// lane it was in before the update along with the updated card. The previous
// lane lets the caller distinguish a move from an in-place edit.
func (s *Store) UpdateCard(ctx context.Context, cardID, boardID string, upd domain.CardUpdate, now string) (string, domain.Card, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", domain.Card{}, err
	}
	defer tx.Rollback()

	card, err := scanCard(tx.QueryRowContext(ctx,
		`SELECT id, board_id, lane_id, author_id, content, priority, position, archived, created_at, updated_at
		 FROM cards WHERE id = ? AND board_id = ?`, cardID, boardID))
	if err != nil {
		return "", domain.Card{}, err
	}
	previousLane := card.LaneID

	if upd.Content != nil {
		card.Content = *upd.Content
	}
	if upd.LaneID != nil {
		card.LaneID = *upd.LaneID
	}
	if upd.Priority != nil {
		card.Priority = *upd.Priority
	}
	if upd.Position != nil {
		card.Position = *upd.Position
	}
	card.UpdatedAt = decodeTime(now)

	if _, err := tx.ExecContext(ctx,
		`UPDATE cards SET lane_id = ?, content = ?, priority = ?, position = ?, updated_at = ? WHERE id = ?`,
		card.LaneID, card.Content, card.Priority, card.Position, now, card.ID); err != nil {
		return "", domain.Card{}, err
	}
	if err := tx.Commit(); err != nil {
		return "", domain.Card{}, err
	}
	return previousLane, card, nil
}

// SetCardArchived flips the archived flag and reports whether the card
// actually changed state.
func (s *Store) SetCardArchived(ctx context.Context, cardID, boardID string, archived bool, now string) (bool, error) {
	flag := 0
	if archived {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE cards SET archived = ?, updated_at = ? WHERE id = ? AND board_id = ? AND archived != ?`,
		flag, now, cardID, boardID, flag)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetCard fetches a single card.
func (s *Store) GetCard(ctx context.Context, cardID string) (domain.Card, error) {
	return scanCard(s.db.QueryRowContext(ctx,
		`SELECT id, board_id, lane_id, author_id, content, priority, position, archived, created_at, updated_at
		 FROM cards WHERE id = ?`, cardID))
}

// ListCards returns a board's cards ordered by position.
func (s *Store) ListCards(ctx context.Context, boardID string) ([]domain.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, board_id, lane_id, author_id, content, priority, position, archived, created_at, updated_at
		 FROM cards WHERE board_id = ? AND archived = 0 ORDER BY position`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cards := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var card domain.Card
	var archived int
	var created, updated string
	err := row.Scan(&card.ID, &card.BoardID, &card.LaneID, &card.AuthorID,
		&card.Content, &card.Priority, &card.Position, &archived, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, ErrNotFound
	}
	if err != nil {
		return domain.Card{}, err
	}
	card.Archived = archived != 0
	card.CreatedAt = decodeTime(created)
	card.UpdatedAt = decodeTime(updated)
	return card, nil
}
