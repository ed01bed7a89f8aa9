package storage

import (
	"context"

	"github.com/dest92/agora-backend/domain"
)

// CreateWorkspace inserts a workspace row.
func (s *Store) CreateWorkspace(ctx context.Context, ws domain.Workspace) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, created_by, created_at)
		VALUES (?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.OwnerID, encodeTime(ws.CreatedAt))
	return err
}

// WorkspaceName resolves a workspace's display name.
func (s *Store) WorkspaceName(ctx context.Context, workspaceID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM workspaces WHERE id = ?`, workspaceID).Scan(&name)
	return name, err
}

// AddWorkspaceMember records a membership; an existing member reports false.
func (s *Store) AddWorkspaceMember(ctx context.Context, workspaceID, userID, addedBy, addedAt string) (bool, error) {
	return s.insertIgnore(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, added_by, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (workspace_id, user_id) DO NOTHING`,
		workspaceID, userID, addedBy, addedAt)
}

// CreateSession inserts a session row.
func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, workspace_id, title, created_at)
		VALUES (?, ?, ?, ?)`,
		sess.ID, sess.WorkspaceID, sess.Title, encodeTime(sess.CreatedAt))
	return err
}

// JoinSession records a participant; rejoining reports false.
func (s *Store) JoinSession(ctx context.Context, sessionID, userID, joinedAt string) (bool, error) {
	return s.insertIgnore(ctx, `
		INSERT INTO session_participants (session_id, user_id, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id, user_id) DO NOTHING`,
		sessionID, userID, joinedAt)
}

// LeaveSession removes a participant and reports whether one existed.
func (s *Store) LeaveSession(ctx context.Context, sessionID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_participants WHERE session_id = ? AND user_id = ?`, sessionID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SessionParticipants lists a session's participants in join order.
func (s *Store) SessionParticipants(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM session_participants WHERE session_id = ? ORDER BY joined_at`, sessionID)
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
