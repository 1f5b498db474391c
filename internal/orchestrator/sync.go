package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/devin-sheriff/sheriff/internal/types"
)

// SyncResult summarizes one repository sync
type SyncResult struct {
	Repo    string
	New     int
	Updated int
	Closed  int
}

// Sync reconciles local issue state with the tracker: open issues are
// upserted, re-opened issues come back into the workflow, and local open
// issues no longer open on the tracker are closed out as DONE.
func (o *Orchestrator) Sync(ctx context.Context, repoURL string) (*SyncResult, error) {
	repo, err := o.store.GetRepository(ctx, repoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	if repo == nil {
		return nil, fmt.Errorf("repository %s not connected: %w", repoURL, types.ErrNotFound)
	}

	remote, err := o.github.ListOpenIssues(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Repo: repo.FullName()}
	openNumbers := make(map[int]bool, len(remote))

	for _, ri := range remote {
		openNumbers[ri.Number] = true

		local, err := o.store.GetIssueByNumber(ctx, repo.ID, ri.Number)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
		}
		if local == nil {
			issue := &types.Issue{
				RepoID: repo.ID,
				Number: ri.Number,
				Title:  ri.Title,
				Body:   ri.Body,
				State:  "open",
				Status: types.StatusNew,
			}
			if err := o.store.UpsertIssue(ctx, issue); err != nil {
				return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
			}
			result.New++
			continue
		}

		changed := local.Title != ri.Title || local.Body != ri.Body
		local.Title = ri.Title
		local.Body = ri.Body
		if local.State == "closed" {
			// Re-opened on the tracker. A finished issue goes back to NEW
			// for a fresh scope; an in-progress one keeps its status.
			local.State = "open"
			if local.Status == types.StatusDone {
				local.Status = types.StatusNew
				local.Plan = nil
				local.Confidence = nil
				local.PRURL = ""
				local.HealAttempts = 0
			}
			changed = true
		}
		if changed {
			result.Updated++
		}
		if err := o.store.UpsertIssue(ctx, local); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
		}
	}

	// Local open issues absent from the tracker's open list were closed
	// upstream, usually by a merged PR.
	locals, err := o.store.ListIssues(ctx, repo.ID, types.StatusFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	for _, local := range locals {
		if local.State != "open" || openNumbers[local.Number] {
			continue
		}
		local.State = "closed"
		local.Status = types.StatusDone
		if err := o.store.UpsertIssue(ctx, local); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
		}
		result.Closed++
	}

	if err := o.store.TouchRepositorySync(ctx, repo.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	slog.Info("repository synced",
		"repo", repo.FullName(),
		"new", result.New,
		"updated", result.Updated,
		"closed", result.Closed)
	return result, nil
}

// PatrolResult summarizes one patrol pass
type PatrolResult struct {
	Synced  []*SyncResult
	Scoped  int
	Checked int
	Errors  []error
}

// Patrol runs one maintenance pass over every connected repository: sync
// with the tracker, scope anything NEW, and check-and-heal every open pull
// request. Issues are processed concurrently up to the configured limit;
// one issue's failure never stops the rest.
func (o *Orchestrator) Patrol(ctx context.Context) (*PatrolResult, error) {
	repos, err := o.store.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	result := &PatrolResult{}
	for _, repo := range repos {
		sr, err := o.Sync(ctx, repo.URL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("sync %s: %w", repo.FullName(), err))
			continue
		}
		result.Synced = append(result.Synced, sr)
	}

	for _, repo := range repos {
		issues, err := o.store.ListIssues(ctx, repo.ID, types.StatusFilter{})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("list %s: %w", repo.FullName(), err))
			continue
		}

		var g errgroup.Group
		g.SetLimit(o.cfg.PatrolConcurrency)
		var scoped, checked atomicCounter
		var errs errorCollector

		for _, issue := range issues {
			issue := issue
			switch issue.Status {
			case types.StatusNew:
				g.Go(func() error {
					if _, err := o.RequestScope(ctx, issue.ID); err != nil {
						if !errors.Is(err, types.ErrSessionInProgress) {
							errs.add(fmt.Errorf("scope #%d: %w", issue.Number, err))
						}
						return nil
					}
					scoped.inc()
					return nil
				})
			case types.StatusPROpen:
				g.Go(func() error {
					if _, err := o.CheckAndHeal(ctx, issue.ID); err != nil {
						if !errors.Is(err, types.ErrSessionInProgress) {
							errs.add(fmt.Errorf("check #%d: %w", issue.Number, err))
						}
						return nil
					}
					checked.inc()
					return nil
				})
			}
		}
		_ = g.Wait()

		result.Scoped += scoped.get()
		result.Checked += checked.get()
		result.Errors = append(result.Errors, errs.all()...)
	}

	slog.Info("patrol complete",
		"repos", len(repos),
		"scoped", result.Scoped,
		"checked", result.Checked,
		"errors", len(result.Errors))
	return result, nil
}

// atomicCounter is a mutex-guarded counter shared by patrol workers
type atomicCounter struct {
	mu sync.Mutex
	n  int
}

func (c *atomicCounter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *atomicCounter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// errorCollector accumulates per-issue errors across patrol workers
type errorCollector struct {
	mu   sync.Mutex
	errs []error
}

func (c *errorCollector) add(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

func (c *errorCollector) all() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs
}
