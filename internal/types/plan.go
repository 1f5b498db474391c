package types

import (
	"fmt"
	"strings"
)

// ActionPlan is the structured result of a Scope session. It is immutable
// once attached to an Issue; re-running Scope replaces it wholesale.
type ActionPlan struct {
	Summary    string   `json:"summary"`
	Steps      []string `json:"steps"`
	Files      []string `json:"files"`
	Confidence int      `json:"confidence"` // 0-100, self-reported by the Scope session
}

// Validate checks if the plan is executable. A plan needs at least one
// implementation step and one expected file to be worth sending to Execute.
func (p *ActionPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan must contain at least one step")
	}
	if len(p.Files) == 0 {
		return fmt.Errorf("plan must name at least one file")
	}
	if p.Confidence < 0 || p.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100 (got %d)", p.Confidence)
	}
	return nil
}

// RiskLevel classifies the blast radius of an ActionPlan
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskConfig controls risk derivation
type RiskConfig struct {
	// SensitivePatterns are path substrings that escalate risk to high
	SensitivePatterns []string
	// FileThreshold is the distinct-file count above which risk is at least medium
	FileThreshold int
}

// DefaultRiskConfig returns the default risk derivation settings
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		SensitivePatterns: []string{
			"auth",
			"payment",
			"billing",
			"migration",
			"secret",
			"credential",
		},
		FileThreshold: 5,
	}
}

// DeriveRisk computes the risk level from a plan's file set. The derivation
// is pure: it depends only on the plan and the config, so it can be
// recomputed after manual plan edits.
func DeriveRisk(plan *ActionPlan, cfg RiskConfig) RiskLevel {
	if plan == nil {
		return RiskLow
	}

	distinct := make(map[string]struct{}, len(plan.Files))
	for _, f := range plan.Files {
		path := strings.ToLower(f)
		distinct[path] = struct{}{}
		for _, pattern := range cfg.SensitivePatterns {
			if strings.Contains(path, strings.ToLower(pattern)) {
				return RiskHigh
			}
		}
	}

	if cfg.FileThreshold > 0 && len(distinct) > cfg.FileThreshold {
		return RiskMedium
	}
	return RiskLow
}
