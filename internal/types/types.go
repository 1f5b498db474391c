package types

import (
	"fmt"
	"time"
)

// Repository identifies a connected source repository
type Repository struct {
	ID            int64      `json:"id"`
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	DefaultBranch string     `json:"default_branch"`
	CreatedAt     time.Time  `json:"created_at"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

// FullName returns the "owner/name" form used in rule resolution and display
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Validate checks if the repository has valid field values
func (r *Repository) Validate() error {
	if r.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// Issue represents a tracked issue from the connected tracker.
// The Issue is the unit of concurrency control: at most one active remote job
// per issue at any time, enforced through the persisted in-flight marker.
type Issue struct {
	ID           int64       `json:"id"`
	RepoID       int64       `json:"repo_id"`
	Number       int         `json:"number"`
	Title        string      `json:"title"`
	Body         string      `json:"body"`
	State        string      `json:"state"` // open/closed on the tracker side
	Status       Status      `json:"status"`
	Confidence   *int        `json:"confidence,omitempty"` // 0-100, set once SCOPED
	Plan         *ActionPlan `json:"plan,omitempty"`
	PRURL        string      `json:"pr_url,omitempty"`
	HealAttempts int         `json:"heal_attempts"`
	LastError    string      `json:"last_error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Validate checks if the issue has valid field values
func (i *Issue) Validate() error {
	if i.RepoID == 0 {
		return fmt.Errorf("repo_id is required")
	}
	if i.Number <= 0 {
		return fmt.Errorf("number must be positive (got %d)", i.Number)
	}
	if i.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	if i.Confidence != nil && (*i.Confidence < 0 || *i.Confidence > 100) {
		return fmt.Errorf("confidence must be between 0 and 100 (got %d)", *i.Confidence)
	}
	if i.HealAttempts < 0 {
		return fmt.Errorf("heal_attempts cannot be negative")
	}
	return nil
}

// RiskLevel returns the risk classification derived from the attached plan,
// or RiskLow when the issue has not been scoped yet.
func (i *Issue) RiskLevel(cfg RiskConfig) RiskLevel {
	if i.Plan == nil {
		return RiskLow
	}
	return DeriveRisk(i.Plan, cfg)
}

// Status represents where an issue is in the scope/execute workflow
type Status string

const (
	StatusNew       Status = "NEW"
	StatusScoped    Status = "SCOPED"
	StatusExecuting Status = "EXECUTING"
	StatusPROpen    Status = "PR_OPEN"
	StatusDone      Status = "DONE"
	StatusFailed    Status = "FAILED"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusScoped, StatusExecuting, StatusPROpen, StatusDone, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further automatic work happens in this status
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// ValidTransitions defines the legal edges of the issue workflow.
//
// State Machine Diagram:
//
//	NEW → SCOPED → EXECUTING → PR_OPEN → DONE
//	          ↓         ↓          ↓
//	       FAILED    FAILED    FAILED (heal exhausted)
//
// FAILED may re-enter the workflow through scoping. The explicit reset
// transition (any state → NEW) is handled separately by Storage.ResetIssue
// because it also clears the plan, PR reference, and heal attempts.
func (s Status) ValidTransitions() []Status {
	switch s {
	case StatusNew:
		return []Status{StatusScoped, StatusFailed}
	case StatusScoped:
		return []Status{StatusExecuting, StatusFailed}
	case StatusExecuting:
		return []Status{StatusPROpen, StatusFailed}
	case StatusPROpen:
		// Heal re-enters execution; DONE once the PR is observed merged/closed.
		return []Status{StatusExecuting, StatusDone, StatusFailed}
	case StatusDone:
		return []Status{}
	case StatusFailed:
		return []Status{StatusScoped}
	default:
		return []Status{}
	}
}

// CanTransitionTo checks if a transition from this status to the target is legal
func (s Status) CanTransitionTo(target Status) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}

// StatusFilter is used to filter issue queries
type StatusFilter struct {
	Status *Status
	Limit  int
}
