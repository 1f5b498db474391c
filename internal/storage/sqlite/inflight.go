package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/devin-sheriff/sheriff/internal/types"
)

// TryMarkInFlight atomically claims the issue for a remote job. The claim is
// an INSERT into a PRIMARY KEY table, so exactly one of any number of
// concurrent callers (across processes) succeeds; the rest get false.
func (s *SQLiteStorage) TryMarkInFlight(ctx context.Context, issueID int64) (bool, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inflight (issue_id) VALUES (?)
	`, issueID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		if isForeignKeyError(err) {
			return false, fmt.Errorf("issue %d not found: %w", issueID, types.ErrNotFound)
		}
		return false, fmt.Errorf("failed to mark in-flight: %w", err)
	}
	return true, nil
}

// ClearInFlight releases the claim. Clearing an unclaimed issue is a no-op so
// callers can defer it unconditionally.
func (s *SQLiteStorage) ClearInFlight(ctx context.Context, issueID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM inflight WHERE issue_id = ?`, issueID); err != nil {
		return fmt.Errorf("failed to clear in-flight marker: %w", err)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
