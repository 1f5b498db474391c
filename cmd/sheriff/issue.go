package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"

	"github.com/devin-sheriff/sheriff/internal/config"
	"github.com/devin-sheriff/sheriff/internal/storage"
	"github.com/devin-sheriff/sheriff/internal/types"
)

// resolveIssue looks up a tracked issue by repository URL and issue number
func resolveIssue(ctx context.Context, store storage.Storage, repoURL, numberArg string) (*types.Issue, error) {
	number, err := strconv.Atoi(numberArg)
	if err != nil {
		return nil, fmt.Errorf("issue number must be an integer, got %q", numberArg)
	}
	repo, err := store.GetRepository(ctx, repoURL)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("repository %s not connected", repoURL)
	}
	issue, err := store.GetIssueByNumber(ctx, repo.ID, number)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, fmt.Errorf("issue #%d not tracked for %s (run 'sheriff sync')", number, repo.FullName())
	}
	return issue, nil
}

// printPlan renders a stored action plan for human review
func printPlan(issue *types.Issue) {
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("\n%s #%d %s\n", cyan("Plan for"), issue.Number, issue.Title)
	fmt.Printf("\n  %s\n", issue.Plan.Summary)
	fmt.Printf("\n  Steps:\n")
	for i, step := range issue.Plan.Steps {
		fmt.Printf("    %d. %s\n", i+1, step)
	}
	fmt.Printf("\n  Files:\n")
	for _, f := range issue.Plan.Files {
		fmt.Printf("    - %s\n", f)
	}

	risk := issue.RiskLevel(config.DefaultWorkflowConfig().Risk)
	riskStr := string(risk)
	if risk == types.RiskHigh {
		riskStr = yellow(riskStr)
	}
	fmt.Printf("\n  Confidence: %d   Risk: %s\n\n", issue.Plan.Confidence, riskStr)
}
