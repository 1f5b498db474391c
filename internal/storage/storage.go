package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/devin-sheriff/sheriff/internal/storage/sqlite"
	"github.com/devin-sheriff/sheriff/internal/types"
)

// Storage defines the interface for the durable sheriff store
type Storage interface {
	// Repositories
	UpsertRepository(ctx context.Context, repo *types.Repository) error
	GetRepository(ctx context.Context, url string) (*types.Repository, error)
	GetRepositoryByID(ctx context.Context, id int64) (*types.Repository, error)
	ListRepositories(ctx context.Context) ([]*types.Repository, error)
	RemoveRepository(ctx context.Context, url string) error
	TouchRepositorySync(ctx context.Context, repoID int64) error

	// Issues
	UpsertIssue(ctx context.Context, issue *types.Issue) error
	GetIssue(ctx context.Context, id int64) (*types.Issue, error)
	GetIssueByNumber(ctx context.Context, repoID int64, number int) (*types.Issue, error)
	ListIssues(ctx context.Context, repoID int64, filter types.StatusFilter) ([]*types.Issue, error)
	ResetIssue(ctx context.Context, id int64) error

	// Sessions (append-only history)
	CreateSession(ctx context.Context, session *types.DevinSession) error
	UpdateSession(ctx context.Context, session *types.DevinSession) error
	GetLatestSession(ctx context.Context, issueID int64, kind types.SessionKind) (*types.DevinSession, error)
	ListSessions(ctx context.Context, issueID int64) ([]*types.DevinSession, error)

	// In-flight marker (mutual-exclusion boundary per issue)
	TryMarkInFlight(ctx context.Context, issueID int64) (bool, error)
	ClearInFlight(ctx context.Context, issueID int64) error

	// Lifecycle
	DeleteAll(ctx context.Context) error
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path.
	// Default: "~/.devin-sheriff/sheriff.db".
	// Special value ":memory:" creates an in-memory database (useful for tests).
	Path string
}

// DefaultConfig returns a config pointing at the standard sheriff database
func DefaultConfig() *Config {
	return &Config{Path: DefaultPath()}
}

// DefaultPath returns the standard database location under the user's home
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".devin-sheriff", "sheriff.db")
	}
	return filepath.Join(home, ".devin-sheriff", "sheriff.db")
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath()
	}
	return sqlite.New(cfg.Path)
}
