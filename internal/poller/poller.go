// Package poller watches an asynchronous remote job until it reaches a
// terminal state, the deadline passes, or the caller cancels.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devin-sheriff/sheriff/internal/devin"
	"github.com/devin-sheriff/sheriff/internal/types"
)

// Poller polls remote job status at a fixed interval. Transient query
// failures are tolerated up to MaxQueryRetries consecutive times; a success
// resets the counter.
type Poller struct {
	Interval        time.Duration
	MaxQueryRetries int
}

// New creates a poller with the given interval and transient-retry budget
func New(interval time.Duration, maxQueryRetries int) *Poller {
	return &Poller{Interval: interval, MaxQueryRetries: maxQueryRetries}
}

// Result is the outcome of awaiting a remote job
type Result struct {
	Status     types.SessionStatus
	Info       *devin.SessionInfo
	FailReason string
}

// Await polls the job until it finishes, fails, or the timeout elapses.
// A nil error is returned for every remote outcome, including timeout; the
// caller reads Result.Status. An error is returned only when the context is
// cancelled or consecutive status queries keep failing past the retry budget.
func (p *Poller) Await(ctx context.Context, client devin.JobClient, remoteID string, timeout time.Duration) (*Result, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		info, err := client.GetSession(ctx, remoteID)
		switch {
		case err == nil:
			consecutiveFailures = 0
			if info.Status.IsTerminal() {
				return terminalResult(info), nil
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case devin.IsTransient(err):
			consecutiveFailures++
			slog.Warn("transient failure querying session status",
				"remoteID", remoteID,
				"attempt", consecutiveFailures,
				"error", err)
			if consecutiveFailures > p.MaxQueryRetries {
				return nil, fmt.Errorf("status queries failed %d times in a row: %w: %w",
					consecutiveFailures, err, types.ErrRemoteFailure)
			}
		default:
			// Non-transient API error: auth revoked, session gone
			return nil, err
		}

		if time.Now().After(deadline) {
			return &Result{
				Status:     types.SessionTimedOut,
				Info:       info,
				FailReason: fmt.Sprintf("no terminal state within %s", timeout),
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func terminalResult(info *devin.SessionInfo) *Result {
	switch info.Status {
	case devin.RemoteDone:
		return &Result{Status: types.SessionCompleted, Info: info}
	case devin.RemoteExpired:
		return &Result{Status: types.SessionTimedOut, Info: info, FailReason: "remote session expired"}
	default:
		return &Result{Status: types.SessionFailed, Info: info, FailReason: "remote session failed"}
	}
}
