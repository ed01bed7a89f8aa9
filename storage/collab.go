package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dest92/agora-backend/domain"
)

// AssignUser records a card assignment. Re-assigning an existing pair is a
// no-op and reports false.
func (s *Store) AssignUser(ctx context.Context, cardID, userID, assignedAt string) (bool, error) {
	return s.insertIgnore(ctx, `
		INSERT INTO card_assignees (card_id, user_id, assigned_at)
		VALUES (?, ?, ?)
		ON CONFLICT (card_id, user_id) DO NOTHING`,
		cardID, userID, assignedAt)
}

// UnassignUser removes an assignment and reports whether one existed.
func (s *Store) UnassignUser(ctx context.Context, cardID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM card_assignees WHERE card_id = ? AND user_id = ?`, cardID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Assignees lists the users assigned to a card.
func (s *Store) Assignees(ctx context.Context, cardID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM card_assignees WHERE card_id = ? ORDER BY assigned_at`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []string{}
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpsertTag creates a tag or refreshes the color of an existing
// (board, label) pair, returning the stored row either way.
func (s *Store) UpsertTag(ctx context.Context, tag domain.Tag) (domain.Tag, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (id, board_id, label, color)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (board_id, label) DO UPDATE SET color = excluded.color
		RETURNING id, board_id, label, color`,
		tag.ID, tag.BoardID, tag.Label, tag.Color)
	var out domain.Tag
	if err := row.Scan(&out.ID, &out.BoardID, &out.Label, &out.Color); err != nil {
		return domain.Tag{}, err
	}
	return out, nil
}

// AssignTag attaches a tag to a card; duplicates report false.
func (s *Store) AssignTag(ctx context.Context, cardID, tagID string) (bool, error) {
	return s.insertIgnore(ctx, `
		INSERT INTO card_tags (card_id, tag_id)
		VALUES (?, ?)
		ON CONFLICT (card_id, tag_id) DO NOTHING`,
		cardID, tagID)
}

// UnassignTag detaches a tag and reports whether it was attached.
func (s *Store) UnassignTag(ctx context.Context, cardID, tagID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM card_tags WHERE card_id = ? AND tag_id = ?`, cardID, tagID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SwapVote atomically replaces a voter's recorded vote on a card and returns
// the previous weight (0 when the voter had no vote). Casting the weight
// already recorded removes the vote; anything else upserts it. The read and
// the write share one transaction so concurrent toggles never lose a
// transition.
func (s *Store) SwapVote(ctx context.Context, cardID, voterID string, weight int, createdAt string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	previous := 0
	err = tx.QueryRowContext(ctx,
		`SELECT weight FROM votes WHERE card_id = ? AND voter_id = ?`, cardID, voterID).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	if previous == weight {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM votes WHERE card_id = ? AND voter_id = ?`, cardID, voterID)
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO votes (card_id, voter_id, weight, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (card_id, voter_id) DO UPDATE SET weight = excluded.weight`,
			cardID, voterID, weight, createdAt)
	}
	if err != nil {
		return 0, err
	}
	return previous, tx.Commit()
}

// VoteSummary aggregates a card's votes.
func (s *Store) VoteSummary(ctx context.Context, cardID string) (domain.VoteSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT weight FROM votes WHERE card_id = ?`, cardID)
	if err != nil {
		return domain.VoteSummary{}, err
	}
	defer rows.Close()
	var sum domain.VoteSummary
	for rows.Next() {
		var w int
		if err := rows.Scan(&w); err != nil {
			return domain.VoteSummary{}, err
		}
		if w > 0 {
			sum.Upvotes++
		} else if w < 0 {
			sum.Downvotes++
		}
		sum.Total += w
	}
	return sum, rows.Err()
}

// UserVote returns a voter's current weight on a card, 0 when absent.
func (s *Store) UserVote(ctx context.Context, cardID, voterID string) (int, error) {
	var w int
	err := s.db.QueryRowContext(ctx,
		`SELECT weight FROM votes WHERE card_id = ? AND voter_id = ?`, cardID, voterID).Scan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return w, err
}
