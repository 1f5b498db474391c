package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/devin-sheriff/sheriff/internal/devin"
	"github.com/devin-sheriff/sheriff/internal/github"
	"github.com/devin-sheriff/sheriff/internal/types"
)

func TestSyncCreatesNewIssues(t *testing.T) {
	env := newTestEnv(t)
	repo := env.seedRepo(t)
	env.gh.issues = []github.RemoteIssue{
		{Number: 1, Title: "first", Body: "a", State: "open"},
		{Number: 2, Title: "second", Body: "b", State: "open"},
		{Number: 3, Title: "third", Body: "c", State: "open"},
	}

	result, err := env.orch.Sync(context.Background(), repo.URL)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.New != 3 || result.Updated != 0 || result.Closed != 0 {
		t.Errorf("result = %+v, want 3 new", result)
	}

	issues, err := env.store.ListIssues(context.Background(), repo.ID, types.StatusFilter{})
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3", len(issues))
	}
	for _, issue := range issues {
		if issue.Status != types.StatusNew || issue.State != "open" {
			t.Errorf("issue #%d = %s/%s, want NEW/open", issue.Number, issue.Status, issue.State)
		}
	}

	// repeated sync is idempotent
	result, err = env.orch.Sync(context.Background(), repo.URL)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if result.New != 0 {
		t.Errorf("second sync created %d issues, want 0", result.New)
	}
}

func TestSyncClosesStaleIssues(t *testing.T) {
	env := newTestEnv(t)
	repo := env.seedRepo(t)
	env.seedIssue(t, repo, types.StatusPROpen) // number 42, open locally

	// tracker no longer lists #42 as open
	env.gh.issues = nil

	result, err := env.orch.Sync(context.Background(), repo.URL)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Closed != 1 {
		t.Errorf("closed = %d, want 1", result.Closed)
	}

	got, _ := env.store.GetIssueByNumber(context.Background(), repo.ID, 42)
	if got.State != "closed" || got.Status != types.StatusDone {
		t.Errorf("stale issue = %s/%s, want closed/DONE", got.State, got.Status)
	}
}

func TestSyncReopensFinishedIssue(t *testing.T) {
	env := newTestEnv(t)
	repo := env.seedRepo(t)
	issue := env.seedIssue(t, repo, types.StatusPROpen)
	issue.State = "closed"
	issue.Status = types.StatusDone
	if err := env.store.UpsertIssue(context.Background(), issue); err != nil {
		t.Fatalf("failed to close issue: %v", err)
	}

	env.gh.issues = []github.RemoteIssue{
		{Number: 42, Title: "Fix login timeout", Body: "still broken", State: "open"},
	}

	result, err := env.orch.Sync(context.Background(), repo.URL)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("updated = %d, want 1", result.Updated)
	}

	got, _ := env.store.GetIssueByNumber(context.Background(), repo.ID, 42)
	if got.State != "open" || got.Status != types.StatusNew {
		t.Errorf("reopened issue = %s/%s, want open/NEW", got.State, got.Status)
	}
	if got.Plan != nil || got.PRURL != "" {
		t.Error("reopened issue should start a fresh workflow")
	}
	if got.Body != "still broken" {
		t.Errorf("body not refreshed: %q", got.Body)
	}
}

func TestSyncUnknownRepo(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.orch.Sync(context.Background(), "https://github.com/nobody/nothing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSyncTouchesRepoTimestamp(t *testing.T) {
	env := newTestEnv(t)
	repo := env.seedRepo(t)

	if _, err := env.orch.Sync(context.Background(), repo.URL); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	got, _ := env.store.GetRepository(context.Background(), repo.URL)
	if got.LastSyncedAt == nil {
		t.Error("last synced timestamp not recorded")
	}
}

func TestPatrol(t *testing.T) {
	env := newTestEnv(t)
	repo := env.seedRepo(t)
	env.gh.issues = []github.RemoteIssue{
		{Number: 1, Title: "needs scoping", Body: "x", State: "open"},
		{Number: 42, Title: "Fix login timeout", Body: "y", State: "open"},
	}
	env.seedIssue(t, repo, types.StatusPROpen) // number 42
	env.gh.checks = &github.CheckStatus{State: github.ChecksPassing}

	result, err := env.orch.Patrol(context.Background())
	if err != nil {
		t.Fatalf("Patrol() error = %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("patrol errors: %v", result.Errors)
	}
	if len(result.Synced) != 1 || result.Synced[0].New != 1 {
		t.Errorf("sync results = %+v", result.Synced)
	}
	if result.Scoped != 1 {
		t.Errorf("scoped = %d, want 1", result.Scoped)
	}
	if result.Checked != 1 {
		t.Errorf("checked = %d, want 1", result.Checked)
	}

	scoped, _ := env.store.GetIssueByNumber(context.Background(), repo.ID, 1)
	if scoped.Status != types.StatusScoped {
		t.Errorf("issue #1 = %s, want SCOPED", scoped.Status)
	}
	done, _ := env.store.GetIssueByNumber(context.Background(), repo.ID, 42)
	if done.Status != types.StatusDone {
		t.Errorf("issue #42 = %s, want DONE", done.Status)
	}
}

func TestPatrolIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	repo := env.seedRepo(t)
	env.gh.issues = []github.RemoteIssue{
		{Number: 1, Title: "will fail", Body: "x", State: "open"},
		{Number: 2, Title: "will succeed", Body: "y", State: "open"},
	}
	// concurrency 1 makes session order deterministic: the first scope gets
	// garbage, the second a valid plan
	env.orch.cfg.PatrolConcurrency = 1
	env.jobs.outcomes = []devin.SessionInfo{
		{Status: devin.RemoteDone, Output: "no json here"},
		{Status: devin.RemoteDone, Output: planJSON},
	}

	result, err := env.orch.Patrol(context.Background())
	if err != nil {
		t.Fatalf("Patrol() error = %v", err)
	}
	if result.Scoped != 1 {
		t.Errorf("scoped = %d, want 1", result.Scoped)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly 1", result.Errors)
	}
	if !errors.Is(result.Errors[0], types.ErrMalformedResult) {
		t.Errorf("error = %v, want ErrMalformedResult", result.Errors[0])
	}

	failed, _ := env.store.GetIssueByNumber(context.Background(), repo.ID, 1)
	if failed.Status != types.StatusFailed {
		t.Errorf("issue #1 = %s, want FAILED", failed.Status)
	}
	scoped, _ := env.store.GetIssueByNumber(context.Background(), repo.ID, 2)
	if scoped.Status != types.StatusScoped {
		t.Errorf("issue #2 = %s, want SCOPED", scoped.Status)
	}
}
