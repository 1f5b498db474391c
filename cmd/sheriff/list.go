package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/config"
	"github.com/devin-sheriff/sheriff/internal/types"
)

var (
	listRepo   string
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected repositories or tracked issues",
	Long: `Without flags, list the connected repositories. With --repo, list that
repository's issues and where each one is in the workflow.

Examples:
  sheriff list
  sheriff list --repo https://github.com/octocat/hello
  sheriff list --repo https://github.com/octocat/hello --status PR_OPEN`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if listRepo == "" {
			repos, err := store.ListRepositories(ctx)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Println("No repositories connected. Run 'sheriff connect <repo-url>'.")
				return nil
			}
			cyan := color.New(color.FgCyan).SprintFunc()
			gray := color.New(color.FgHiBlack).SprintFunc()
			for _, repo := range repos {
				synced := "never synced"
				if repo.LastSyncedAt != nil {
					synced = "synced " + repo.LastSyncedAt.Format("2006-01-02 15:04")
				}
				fmt.Printf("%s  %s  %s\n", cyan(repo.FullName()), repo.URL, gray(synced))
			}
			return nil
		}

		repo, err := store.GetRepository(ctx, listRepo)
		if err != nil {
			return err
		}
		if repo == nil {
			return fmt.Errorf("repository %s not connected", listRepo)
		}

		filter := types.StatusFilter{Limit: listLimit}
		if listStatus != "" {
			status := types.Status(listStatus)
			if !status.IsValid() {
				return fmt.Errorf("unknown status %q", listStatus)
			}
			filter.Status = &status
		}

		issues, err := store.ListIssues(ctx, repo.ID, filter)
		if err != nil {
			return err
		}
		if len(issues) == 0 {
			fmt.Println("No issues tracked. Run 'sheriff sync'.")
			return nil
		}

		workflowCfg := config.DefaultWorkflowConfig()
		for _, issue := range issues {
			extra := ""
			if issue.Confidence != nil {
				extra = fmt.Sprintf("  confidence %d  risk %s", *issue.Confidence, issue.RiskLevel(workflowCfg.Risk))
			}
			if issue.PRURL != "" {
				extra += "  " + issue.PRURL
			}
			if issue.Status == types.StatusFailed && issue.LastError != "" {
				extra += "  " + color.New(color.FgRed).Sprint(issue.LastError)
			}
			fmt.Printf("#%-5d %-10s %s%s\n", issue.Number, statusColor(issue.Status), issue.Title, extra)
		}
		return nil
	},
}

func statusColor(s types.Status) string {
	switch s {
	case types.StatusNew:
		return color.New(color.FgWhite).Sprint(s)
	case types.StatusScoped:
		return color.New(color.FgCyan).Sprint(s)
	case types.StatusExecuting:
		return color.New(color.FgYellow).Sprint(s)
	case types.StatusPROpen:
		return color.New(color.FgMagenta).Sprint(s)
	case types.StatusDone:
		return color.New(color.FgGreen).Sprint(s)
	case types.StatusFailed:
		return color.New(color.FgRed).Sprint(s)
	}
	return string(s)
}

func init() {
	listCmd.Flags().StringVar(&listRepo, "repo", "", "repository URL to list issues for")
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter issues by workflow status")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of issues to show")
	rootCmd.AddCommand(listCmd)
}
