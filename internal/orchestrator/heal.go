package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devin-sheriff/sheriff/internal/github"
	"github.com/devin-sheriff/sheriff/internal/types"
)

// Heal re-dispatches execution for an issue whose pull request has failing
// checks. Each heal consumes one attempt from the issue's budget; once the
// budget is spent the issue is failed with ErrRetryExhausted and left for a
// human.
func (o *Orchestrator) Heal(ctx context.Context, issueID int64, failureContext string) (*types.Issue, error) {
	issue, repo, err := o.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Status != types.StatusPROpen && issue.Status != types.StatusExecuting {
		return nil, fmt.Errorf("cannot heal issue in status %s: %w", issue.Status, types.ErrInvalidTransition)
	}
	if issue.PRURL == "" {
		return nil, fmt.Errorf("issue %d has no pull request recorded: %w", issue.Number, types.ErrNotFound)
	}

	release, err := o.claim(ctx, issueID)
	if err != nil {
		return nil, err
	}
	defer release()

	if issue.HealAttempts >= o.cfg.MaxHealAttempts {
		cause := fmt.Errorf("heal budget of %d attempts spent on %s: %w",
			o.cfg.MaxHealAttempts, issue.PRURL, types.ErrRetryExhausted)
		o.notify(ctx, "error", "Heal budget exhausted",
			fmt.Sprintf("%s#%d needs human attention: %s", repo.FullName(), issue.Number, issue.PRURL))
		return nil, o.failIssue(ctx, issue, cause)
	}

	issue.HealAttempts++
	if err := o.store.UpsertIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	slog.Info("healing pull request",
		"issue", issue.Number,
		"repo", repo.FullName(),
		"attempt", issue.HealAttempts,
		"budget", o.cfg.MaxHealAttempts)
	o.notify(ctx, "warn", "Healing pull request",
		fmt.Sprintf("%s#%d attempt %d/%d: %s", repo.FullName(), issue.Number,
			issue.HealAttempts, o.cfg.MaxHealAttempts, issue.PRURL))

	return o.execute(ctx, issue, repo, failureContext)
}

// CheckAndHeal inspects CI on an issue's pull request and acts on what it
// finds: passing checks mark the issue DONE, failing checks trigger a heal,
// pending checks do nothing. Returns the issue in its resulting state.
func (o *Orchestrator) CheckAndHeal(ctx context.Context, issueID int64) (*types.Issue, error) {
	issue, _, err := o.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Status != types.StatusPROpen {
		return nil, fmt.Errorf("cannot check issue in status %s: %w", issue.Status, types.ErrInvalidTransition)
	}

	status, err := o.github.GetCheckStatus(ctx, issue.PRURL)
	if err != nil {
		return nil, err
	}

	switch status.State {
	case github.ChecksPassing:
		return o.MarkDone(ctx, issueID)
	case github.ChecksFailing:
		return o.Heal(ctx, issueID, renderFailures(status.Failures))
	default:
		slog.Debug("checks still pending", "issue", issue.Number, "pr", issue.PRURL)
		return issue, nil
	}
}

// MarkDone finalizes an issue whose pull request has landed: the issue
// transitions to DONE and the tracker issue is closed. A token without
// write access leaves the local record DONE and surfaces
// ErrPermissionDenied for the caller to report.
func (o *Orchestrator) MarkDone(ctx context.Context, issueID int64) (*types.Issue, error) {
	issue, repo, err := o.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !issue.Status.CanTransitionTo(types.StatusDone) {
		return nil, fmt.Errorf("cannot mark issue %s as done: %w", issue.Status, types.ErrInvalidTransition)
	}

	issue.Status = types.StatusDone
	issue.LastError = ""
	if err := o.store.UpsertIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	o.notify(ctx, "info", "Issue resolved",
		fmt.Sprintf("%s#%d done: %s", repo.FullName(), issue.Number, issue.PRURL))

	if err := o.github.CloseIssue(ctx, repo.Owner, repo.Name, issue.Number); err != nil {
		slog.Warn("could not close tracker issue", "issue", issue.Number, "error", err)
		return issue, fmt.Errorf("issue marked done locally but closing on GitHub failed: %w", err)
	}
	return issue, nil
}

// Reset returns an issue to NEW, discarding its plan, PR reference, heal
// budget, and any stale in-flight marker. This is the recovery path for
// FAILED issues and for markers orphaned by a crash.
func (o *Orchestrator) Reset(ctx context.Context, issueID int64) (*types.Issue, error) {
	if err := o.store.ResetIssue(ctx, issueID); err != nil {
		return nil, err
	}
	issue, err := o.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	return issue, nil
}

func renderFailures(failures []github.CheckFailure) string {
	var b strings.Builder
	for _, f := range failures {
		b.WriteString(f.Name)
		if f.Summary != "" {
			b.WriteString(": ")
			b.WriteString(f.Summary)
		}
		b.WriteString("\n")
	}
	return b.String()
}
