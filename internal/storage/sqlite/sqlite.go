package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/devin-sheriff/sheriff/internal/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL mode for better concurrency between CLI and dashboard processes
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pool connection to :memory: gets its own empty database, so the
	// in-memory mode must never grow past the connection the schema ran on.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// UpsertRepository inserts a repository or updates its mutable fields,
// keyed by URL
func (s *SQLiteStorage) UpsertRepository(ctx context.Context, repo *types.Repository) error {
	if err := repo.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = time.Now()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO repos (owner, name, url, default_branch, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET
			owner = excluded.owner,
			name = excluded.name,
			default_branch = excluded.default_branch
		RETURNING id
	`, repo.Owner, repo.Name, repo.URL, repo.DefaultBranch, repo.CreatedAt).Scan(&repo.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert repository: %w", err)
	}
	return nil
}

// GetRepository retrieves a repository by URL. Returns nil if absent.
func (s *SQLiteStorage) GetRepository(ctx context.Context, url string) (*types.Repository, error) {
	var repo types.Repository
	var lastSynced sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, url, default_branch, created_at, last_synced_at
		FROM repos WHERE url = ?
	`, url).Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.URL, &repo.DefaultBranch, &repo.CreatedAt, &lastSynced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	if lastSynced.Valid {
		repo.LastSyncedAt = &lastSynced.Time
	}
	return &repo, nil
}

// GetRepositoryByID retrieves a repository by local ID. Returns nil if absent.
func (s *SQLiteStorage) GetRepositoryByID(ctx context.Context, id int64) (*types.Repository, error) {
	var repo types.Repository
	var lastSynced sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, url, default_branch, created_at, last_synced_at
		FROM repos WHERE id = ?
	`, id).Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.URL, &repo.DefaultBranch, &repo.CreatedAt, &lastSynced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	if lastSynced.Valid {
		repo.LastSyncedAt = &lastSynced.Time
	}
	return &repo, nil
}

// ListRepositories returns all connected repositories
func (s *SQLiteStorage) ListRepositories(ctx context.Context) ([]*types.Repository, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, name, url, default_branch, created_at, last_synced_at
		FROM repos ORDER BY owner, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var repos []*types.Repository
	for rows.Next() {
		var repo types.Repository
		var lastSynced sql.NullTime
		if err := rows.Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.URL, &repo.DefaultBranch, &repo.CreatedAt, &lastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		if lastSynced.Valid {
			repo.LastSyncedAt = &lastSynced.Time
		}
		repos = append(repos, &repo)
	}
	return repos, rows.Err()
}

// RemoveRepository deletes a repository and, through cascades, its issues
// and session history
func (s *SQLiteStorage) RemoveRepository(ctx context.Context, url string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM repos WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("failed to remove repository: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("repository not found: %s: %w", url, types.ErrNotFound)
	}
	return nil
}

// TouchRepositorySync records that a sync completed for the repository
func (s *SQLiteStorage) TouchRepositorySync(ctx context.Context, repoID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE repos SET last_synced_at = ? WHERE id = ?
	`, time.Now(), repoID)
	if err != nil {
		return fmt.Errorf("failed to touch repository sync: %w", err)
	}
	return nil
}

// UpsertIssue inserts an issue or updates it, keyed by (repo, number) so
// repeated syncs never duplicate
func (s *SQLiteStorage) UpsertIssue(ctx context.Context, issue *types.Issue) error {
	if err := issue.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now

	planJSON, err := marshalPlan(issue.Plan)
	if err != nil {
		return err
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO issues (
			repo_id, number, title, body, state, status, confidence,
			plan_json, pr_url, heal_attempts, last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo_id, number) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			state = excluded.state,
			status = excluded.status,
			confidence = excluded.confidence,
			plan_json = excluded.plan_json,
			pr_url = excluded.pr_url,
			heal_attempts = excluded.heal_attempts,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
		RETURNING id
	`,
		issue.RepoID, issue.Number, issue.Title, issue.Body, issue.State,
		issue.Status, issue.Confidence, planJSON, issue.PRURL,
		issue.HealAttempts, issue.LastError, issue.CreatedAt, issue.UpdatedAt,
	).Scan(&issue.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert issue: %w", err)
	}
	return nil
}

const issueColumns = `id, repo_id, number, title, body, state, status, confidence,
	plan_json, pr_url, heal_attempts, last_error, created_at, updated_at`

// GetIssue retrieves an issue by ID. Returns nil if absent.
func (s *SQLiteStorage) GetIssue(ctx context.Context, id int64) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	return scanIssue(row)
}

// GetIssueByNumber retrieves an issue by its tracker number within a repository
func (s *SQLiteStorage) GetIssueByNumber(ctx context.Context, repoID int64, number int) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+issueColumns+` FROM issues WHERE repo_id = ? AND number = ?
	`, repoID, number)
	return scanIssue(row)
}

// ListIssues returns issues for a repository, optionally filtered by status.
// repoID 0 lists issues across all repositories.
func (s *SQLiteStorage) ListIssues(ctx context.Context, repoID int64, filter types.StatusFilter) ([]*types.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues`
	var clauses []string
	var args []interface{}

	if repoID != 0 {
		clauses = append(clauses, "repo_id = ?")
		args = append(args, repoID)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY repo_id, number"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	var issues []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// ResetIssue returns an issue to NEW, clearing the plan, PR reference,
// confidence, heal attempts, and any in-flight marker
func (s *SQLiteStorage) ResetIssue(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE issues SET
			status = ?, confidence = NULL, plan_json = NULL, pr_url = '',
			heal_attempts = 0, last_error = '', updated_at = ?
		WHERE id = ?
	`, types.StatusNew, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to reset issue: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("issue %d not found: %w", id, types.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inflight WHERE issue_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear in-flight marker: %w", err)
	}

	return tx.Commit()
}

// DeleteAll is the factory reset: every repository, issue, session, and
// in-flight marker is removed
func (s *SQLiteStorage) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"inflight", "devin_sessions", "issues", "repos"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanner abstracts sql.Row and sql.Rows for shared issue scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row scanner) (*types.Issue, error) {
	var issue types.Issue
	var confidence sql.NullInt64
	var planJSON sql.NullString

	err := row.Scan(
		&issue.ID, &issue.RepoID, &issue.Number, &issue.Title, &issue.Body,
		&issue.State, &issue.Status, &confidence, &planJSON, &issue.PRURL,
		&issue.HealAttempts, &issue.LastError, &issue.CreatedAt, &issue.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}

	if confidence.Valid {
		c := int(confidence.Int64)
		issue.Confidence = &c
	}
	if planJSON.Valid && planJSON.String != "" {
		var plan types.ActionPlan
		if err := json.Unmarshal([]byte(planJSON.String), &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stored plan: %w", err)
		}
		issue.Plan = &plan
	}
	return &issue, nil
}

func marshalPlan(plan *types.ActionPlan) (sql.NullString, error) {
	if plan == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal plan: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
