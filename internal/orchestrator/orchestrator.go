// Package orchestrator drives the two-phase issue workflow: scope an issue
// into a reviewable plan, then execute the approved plan into a pull request,
// healing failing checks a bounded number of times. All remote work runs
// under a persisted per-issue in-flight marker so concurrent invocations
// (patrol, a second CLI, a crashed run's leftover) cannot double-dispatch.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devin-sheriff/sheriff/internal/config"
	"github.com/devin-sheriff/sheriff/internal/devin"
	"github.com/devin-sheriff/sheriff/internal/github"
	"github.com/devin-sheriff/sheriff/internal/poller"
	"github.com/devin-sheriff/sheriff/internal/prompt"
	"github.com/devin-sheriff/sheriff/internal/rules"
	"github.com/devin-sheriff/sheriff/internal/storage"
	"github.com/devin-sheriff/sheriff/internal/types"
)

// Notifier receives workflow events for delivery to an external channel.
// Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, level, title, message string)
}

// Orchestrator coordinates storage, the tracker, and the remote agent
type Orchestrator struct {
	store    storage.Storage
	github   github.Client
	jobs     devin.JobClient
	prompts  *prompt.Builder
	rules    *rules.Provider
	poll     *poller.Poller
	cfg      config.WorkflowConfig
	notifier Notifier
}

// Options configures a new Orchestrator. Store, GitHub, and Jobs are
// required; the rest default sensibly.
type Options struct {
	Store    storage.Storage
	GitHub   github.Client
	Jobs     devin.JobClient
	Rules    *rules.Provider
	Workflow *config.WorkflowConfig
	Notifier Notifier
}

// New creates an orchestrator
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil || opts.GitHub == nil || opts.Jobs == nil {
		return nil, fmt.Errorf("store, github, and jobs clients are required")
	}
	builder, err := prompt.NewBuilder()
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultWorkflowConfig()
	if opts.Workflow != nil {
		cfg = *opts.Workflow
	}
	rulesProvider := opts.Rules
	if rulesProvider == nil {
		rulesProvider = rules.NewProvider("")
	}
	return &Orchestrator{
		store:    opts.Store,
		github:   opts.GitHub,
		jobs:     opts.Jobs,
		prompts:  builder,
		rules:    rulesProvider,
		poll:     poller.New(cfg.PollInterval, cfg.PollQueryRetries),
		cfg:      cfg,
		notifier: opts.Notifier,
	}, nil
}

// RequestScope runs the scoping phase for an issue: dispatch a remote
// investigation job, await its plan, and persist the plan on the issue. On
// success the issue transitions to SCOPED and the plan is ready for review.
func (o *Orchestrator) RequestScope(ctx context.Context, issueID int64) (*types.Issue, error) {
	issue, repo, err := o.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !issue.Status.CanTransitionTo(types.StatusScoped) {
		return nil, fmt.Errorf("cannot scope issue in status %s: %w", issue.Status, types.ErrInvalidTransition)
	}

	release, err := o.claim(ctx, issueID)
	if err != nil {
		return nil, err
	}
	defer release()

	repoRules, err := o.rules.ResolveFor(repo.FullName())
	if err != nil {
		return nil, err
	}
	promptText, err := o.prompts.BuildScope(&prompt.Context{
		Repo:  repo.FullName(),
		Issue: issue,
		Rules: repoRules,
	})
	if err != nil {
		return nil, err
	}

	result, session, err := o.runSession(ctx, issue, types.KindScope, promptText, o.cfg.ScopeTimeout)
	if err != nil {
		return nil, o.failIssue(ctx, issue, err)
	}
	if result.Status != types.SessionCompleted {
		return nil, o.failIssue(ctx, issue, sessionError(result))
	}

	plan, err := devin.ParseActionPlan(result.Info.Output)
	if err != nil {
		o.finishSession(ctx, session, types.SessionFailed, result.Info.Output, "unparseable plan")
		return nil, o.failIssue(ctx, issue, err)
	}
	o.finishSession(ctx, session, types.SessionCompleted, result.Info.Output, "")

	issue.Plan = plan
	issue.Confidence = &plan.Confidence
	issue.Status = types.StatusScoped
	issue.LastError = ""
	if err := o.store.UpsertIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	slog.Info("issue scoped",
		"issue", issue.Number,
		"repo", repo.FullName(),
		"confidence", plan.Confidence,
		"risk", issue.RiskLevel(o.cfg.Risk))
	o.notify(ctx, "info", "Issue scoped",
		fmt.Sprintf("%s#%d scoped with confidence %d", repo.FullName(), issue.Number, plan.Confidence))
	return issue, nil
}

// RequestExecute runs the execution phase for a scoped issue. The reviewed
// plan is sent verbatim; the remote agent implements it and opens a pull
// request. A non-nil editedPlan replaces the stored plan first, so review
// amendments are what actually gets executed. On success the issue
// transitions to PR_OPEN.
func (o *Orchestrator) RequestExecute(ctx context.Context, issueID int64, editedPlan *types.ActionPlan) (*types.Issue, error) {
	issue, repo, err := o.loadIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.Status != types.StatusScoped {
		return nil, fmt.Errorf("cannot execute issue in status %s: %w", issue.Status, types.ErrInvalidTransition)
	}
	if editedPlan != nil {
		if err := editedPlan.Validate(); err != nil {
			return nil, fmt.Errorf("%v: %w", err, types.ErrInvalidPlan)
		}
	} else if issue.Plan == nil {
		return nil, fmt.Errorf("issue %d has no plan: %w", issue.Number, types.ErrInvalidPlan)
	}

	release, err := o.claim(ctx, issueID)
	if err != nil {
		return nil, err
	}
	defer release()

	// The plan replacement lands only under the claim: a rejected call must
	// not rewrite the plan out from under a session already in flight.
	if editedPlan != nil {
		issue.Plan = editedPlan
		issue.Confidence = &editedPlan.Confidence
		if err := o.store.UpsertIssue(ctx, issue); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
		}
	}

	return o.execute(ctx, issue, repo, "")
}

// execute dispatches an execution session and waits for the pull request.
// failureContext is empty for a first run and carries failing-check details
// when healing. The caller holds the in-flight claim.
func (o *Orchestrator) execute(ctx context.Context, issue *types.Issue, repo *types.Repository, failureContext string) (*types.Issue, error) {
	repoRules, err := o.rules.ResolveFor(repo.FullName())
	if err != nil {
		return nil, err
	}
	promptText, err := o.prompts.BuildExecute(&prompt.Context{
		Repo:           repo.FullName(),
		Issue:          issue,
		Rules:          repoRules,
		Plan:           issue.Plan,
		PRURL:          issue.PRURL,
		FailureContext: failureContext,
	})
	if err != nil {
		return nil, err
	}

	prior := issue.Status
	issue.Status = types.StatusExecuting
	if err := o.store.UpsertIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	result, session, err := o.runSession(ctx, issue, types.KindExecute, promptText, o.cfg.ExecuteTimeout)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Caller aborted: put the issue back where it was so the run
			// can be retried without a reset.
			issue.Status = prior
			if perr := o.store.UpsertIssue(context.WithoutCancel(ctx), issue); perr != nil {
				slog.Error("failed to restore issue status after cancel", "issue", issue.ID, "error", perr)
			}
			return nil, err
		}
		return nil, o.failIssue(ctx, issue, err)
	}
	if result.Status != types.SessionCompleted {
		return nil, o.failIssue(ctx, issue, sessionError(result))
	}

	prURL, err := devin.ParsePullRequestURL(result.Info.Output)
	if err != nil {
		o.finishSession(ctx, session, types.SessionFailed, result.Info.Output, "no pull request URL in result")
		return nil, o.failIssue(ctx, issue, err)
	}
	o.finishSession(ctx, session, types.SessionCompleted, result.Info.Output, "")

	issue.PRURL = prURL
	issue.Status = types.StatusPROpen
	issue.LastError = ""
	if err := o.store.UpsertIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	slog.Info("pull request opened", "issue", issue.Number, "repo", repo.FullName(), "pr", prURL)
	o.notify(ctx, "info", "Pull request opened",
		fmt.Sprintf("%s#%d: %s", repo.FullName(), issue.Number, prURL))
	return issue, nil
}

// runSession records a session, dispatches the remote job, and awaits its
// terminal state. The returned session is left RUNNING with its result
// unset; the caller finalizes it once the payload has been interpreted,
// except for timeout and remote failure which are finalized here.
func (o *Orchestrator) runSession(ctx context.Context, issue *types.Issue, kind types.SessionKind, promptText string, timeout time.Duration) (*poller.Result, *types.DevinSession, error) {
	session := &types.DevinSession{
		ID:        uuid.New().String(),
		IssueID:   issue.ID,
		Kind:      kind,
		Status:    types.SessionPending,
		Prompt:    promptText,
		StartedAt: time.Now(),
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	remoteID, err := o.jobs.CreateSession(ctx, promptText)
	if err != nil {
		o.finishSession(ctx, session, types.SessionFailed, "", err.Error())
		return nil, nil, err
	}
	session.RemoteID = remoteID
	session.Status = types.SessionRunning
	if err := o.store.UpdateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	result, err := o.poll.Await(ctx, o.jobs, remoteID, timeout)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.Canceled) {
			reason = types.FailReasonCancelled
		}
		o.finishSession(ctx, session, types.SessionFailed, "", reason)
		return nil, nil, err
	}

	switch result.Status {
	case types.SessionTimedOut:
		o.finishSession(ctx, session, types.SessionTimedOut, "", result.FailReason)
	case types.SessionFailed:
		output := ""
		if result.Info != nil {
			output = result.Info.Output
		}
		o.finishSession(ctx, session, types.SessionFailed, output, result.FailReason)
	}
	return result, session, nil
}

// finishSession moves a session to a terminal status. The write must land
// even when the caller's context is already cancelled, or a cancelled run
// would leave its session RUNNING forever. Persistence failures here are
// logged, not returned: the issue outcome matters more than the audit record.
func (o *Orchestrator) finishSession(ctx context.Context, session *types.DevinSession, status types.SessionStatus, payload, reason string) {
	now := time.Now()
	session.Status = status
	session.ResultPayload = payload
	session.FailReason = reason
	session.FinishedAt = &now
	if err := o.store.UpdateSession(context.WithoutCancel(ctx), session); err != nil {
		slog.Error("failed to finalize session record", "session", session.ID, "error", err)
	}
}

// failIssue records a failure on the issue and transitions it to FAILED.
// The original error is returned for the caller to surface. Caller
// cancellation is not a workflow failure: the session record is already
// marked cancelled and the issue keeps its status.
func (o *Orchestrator) failIssue(ctx context.Context, issue *types.Issue, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return cause
	}
	issue.Status = types.StatusFailed
	issue.LastError = cause.Error()
	if err := o.store.UpsertIssue(ctx, issue); err != nil {
		slog.Error("failed to persist issue failure", "issue", issue.ID, "error", err)
	}
	o.notify(ctx, "error", "Issue failed",
		fmt.Sprintf("issue #%d: %v", issue.Number, cause))
	return cause
}

// claim takes the persisted in-flight marker for an issue. The returned
// release func uses a fresh context so the marker clears even when the
// caller's context is already cancelled.
func (o *Orchestrator) claim(ctx context.Context, issueID int64) (func(), error) {
	ok, err := o.store.TryMarkInFlight(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	if !ok {
		return nil, fmt.Errorf("issue %d already has a session in progress: %w", issueID, types.ErrSessionInProgress)
	}
	return func() {
		clearCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.store.ClearInFlight(clearCtx, issueID); err != nil {
			slog.Error("failed to clear in-flight marker", "issue", issueID, "error", err)
		}
	}, nil
}

func (o *Orchestrator) loadIssue(ctx context.Context, issueID int64) (*types.Issue, *types.Repository, error) {
	issue, err := o.store.GetIssue(ctx, issueID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	if issue == nil {
		return nil, nil, fmt.Errorf("issue %d: %w", issueID, types.ErrNotFound)
	}
	repo, err := o.store.GetRepositoryByID(ctx, issue.RepoID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	if repo == nil {
		return nil, nil, fmt.Errorf("repository %d: %w", issue.RepoID, types.ErrNotFound)
	}
	return issue, repo, nil
}

func (o *Orchestrator) notify(ctx context.Context, level, title, message string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(ctx, level, title, message)
}

func sessionError(result *poller.Result) error {
	if result.Status == types.SessionTimedOut {
		return fmt.Errorf("%s: %w", result.FailReason, types.ErrRemoteTimeout)
	}
	return fmt.Errorf("%s: %w", result.FailReason, types.ErrRemoteFailure)
}
