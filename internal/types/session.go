package types

import (
	"fmt"
	"time"
)

// SessionKind distinguishes the two phases delegated to the remote agent
type SessionKind string

const (
	KindScope   SessionKind = "SCOPE"
	KindExecute SessionKind = "EXECUTE"
)

// IsValid checks if the session kind value is valid
func (k SessionKind) IsValid() bool {
	return k == KindScope || k == KindExecute
}

// SessionStatus represents the lifecycle of one remote job invocation
type SessionStatus string

const (
	SessionPending   SessionStatus = "PENDING"
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionFailed    SessionStatus = "FAILED"
	SessionTimedOut  SessionStatus = "TIMED_OUT"
)

// IsValid checks if the session status value is valid
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionPending, SessionRunning, SessionCompleted, SessionFailed, SessionTimedOut:
		return true
	}
	return false
}

// IsTerminal reports whether the session has finished
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionTimedOut
}

// FailReasonCancelled marks a session that was aborted by the caller rather
// than failing remotely. Cancelled sessions leave the issue at its
// pre-transition status.
const FailReasonCancelled = "cancelled"

// DevinSession records one remote job invocation. Sessions are append-only
// history owned by their Issue: they are never mutated after reaching a
// terminal status and never deleted except by a full reset.
type DevinSession struct {
	ID            string        `json:"id"` // local record ID (uuid)
	IssueID       int64         `json:"issue_id"`
	Kind          SessionKind   `json:"kind"`
	RemoteID      string        `json:"remote_id,omitempty"`
	Status        SessionStatus `json:"status"`
	Prompt        string        `json:"prompt"` // exact text sent, kept for audit
	ResultPayload string        `json:"result_payload,omitempty"`
	FailReason    string        `json:"fail_reason,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
}

// Validate checks if the session has valid field values
func (s *DevinSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.IssueID == 0 {
		return fmt.Errorf("issue_id is required")
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("invalid kind: %s", s.Kind)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", s.Status)
	}
	if s.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	return nil
}
