package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/devin-sheriff/sheriff/internal/types"
)

// CreateSession appends a new session record to an issue's history
func (s *SQLiteStorage) CreateSession(ctx context.Context, session *types.DevinSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devin_sessions (
			id, issue_id, kind, remote_id, status, prompt,
			result_payload, fail_reason, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID, session.IssueID, session.Kind, session.RemoteID,
		session.Status, session.Prompt, session.ResultPayload,
		session.FailReason, session.StartedAt, session.FinishedAt,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("issue %d not found: %w", session.IssueID, types.ErrNotFound)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateSession persists status/result changes to an existing session record
func (s *SQLiteStorage) UpdateSession(ctx context.Context, session *types.DevinSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE devin_sessions SET
			remote_id = ?, status = ?, result_payload = ?,
			fail_reason = ?, finished_at = ?
		WHERE id = ?
	`,
		session.RemoteID, session.Status, session.ResultPayload,
		session.FailReason, session.FinishedAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found: %w", session.ID, types.ErrNotFound)
	}
	return nil
}

const sessionColumns = `id, issue_id, kind, remote_id, status, prompt,
	result_payload, fail_reason, started_at, finished_at`

// GetLatestSession returns the most recent session of the given kind for an
// issue, or nil if the issue has none. The latest session per kind determines
// the issue's current plan/PR state.
func (s *SQLiteStorage) GetLatestSession(ctx context.Context, issueID int64, kind types.SessionKind) (*types.DevinSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM devin_sessions
		WHERE issue_id = ? AND kind = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`, issueID, kind)
	return scanSession(row)
}

// ListSessions returns the full session history for an issue, oldest first
func (s *SQLiteStorage) ListSessions(ctx context.Context, issueID int64) ([]*types.DevinSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM devin_sessions
		WHERE issue_id = ?
		ORDER BY started_at ASC, rowid ASC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.DevinSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row scanner) (*types.DevinSession, error) {
	var session types.DevinSession
	var finishedAt sql.NullTime

	err := row.Scan(
		&session.ID, &session.IssueID, &session.Kind, &session.RemoteID,
		&session.Status, &session.Prompt, &session.ResultPayload,
		&session.FailReason, &session.StartedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	if finishedAt.Valid {
		session.FinishedAt = &finishedAt.Time
	}
	return &session, nil
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
