package config

import (
	"time"

	"github.com/devin-sheriff/sheriff/internal/types"
)

// WorkflowConfig holds the orchestration tunables: phase deadlines, the poll
// cadence, the auto-heal bound, and risk derivation settings.
type WorkflowConfig struct {
	// ScopeTimeout is the deadline for a SCOPE session (default: 5 minutes)
	ScopeTimeout time.Duration

	// ExecuteTimeout is the deadline for an EXECUTE session (default: 10 minutes)
	ExecuteTimeout time.Duration

	// PollInterval is how often the poller queries session status (default: 5s)
	PollInterval time.Duration

	// PollQueryRetries is how many consecutive transient status-query
	// failures are tolerated before the poll escalates (default: 3)
	PollQueryRetries int

	// MaxHealAttempts bounds the auto-heal loop per issue (default: 3)
	MaxHealAttempts int

	// PatrolConcurrency bounds how many issues patrol scopes at once (default: 4)
	PatrolConcurrency int

	// Risk controls risk derivation from action plans
	Risk types.RiskConfig
}

// DefaultWorkflowConfig returns the default orchestration settings
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		ScopeTimeout:      5 * time.Minute,
		ExecuteTimeout:    10 * time.Minute,
		PollInterval:      5 * time.Second,
		PollQueryRetries:  3,
		MaxHealAttempts:   3,
		PatrolConcurrency: 4,
		Risk:              types.DefaultRiskConfig(),
	}
}
