package types

import "errors"

// Error taxonomy for the orchestration core. Transport-level and job-level
// errors are converted into these at the collaborator/poller boundary; the
// state machine never surfaces raw transport errors. Callers classify with
// errors.Is.
var (
	// ErrAuth indicates a bad or expired credential. Fatal, never retried.
	ErrAuth = errors.New("authentication failed")

	// ErrNotFound indicates the repo/issue/session is absent. Fatal for the operation.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates the token lacks the required scope.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition guards the state machine edges. Recoverable,
	// never retried automatically.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidPlan rejects an ActionPlan without at least one step and one file.
	ErrInvalidPlan = errors.New("invalid action plan")

	// ErrSessionInProgress rejects a job start while an unterminated session
	// exists for the issue.
	ErrSessionInProgress = errors.New("session already in progress")

	// ErrRemoteTimeout is the poller deadline expiring before the remote job
	// reached a terminal state. The issue moves to FAILED; the session is
	// retained for inspection.
	ErrRemoteTimeout = errors.New("remote session timed out")

	// ErrRemoteFailure is the remote job reporting failure. Handled like a timeout.
	ErrRemoteFailure = errors.New("remote session failed")

	// ErrRetryExhausted is the auto-heal bound being hit. The issue moves to
	// FAILED with no further automatic action.
	ErrRetryExhausted = errors.New("heal retries exhausted")

	// ErrMalformedResult indicates the remote job's result payload could not
	// be parsed into the expected structure.
	ErrMalformedResult = errors.New("malformed session result")

	// ErrPersistence indicates the store is unavailable. Fatal; the
	// operation aborts with no partial state committed.
	ErrPersistence = errors.New("persistence error")
)
