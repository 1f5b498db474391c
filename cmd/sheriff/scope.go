package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var scopeCmd = &cobra.Command{
	Use:   "scope <repo-url> <issue-number>",
	Short: "Scope an issue into a reviewable action plan",
	Long: `Dispatch a remote scoping session for an issue. The agent investigates
the repository without making changes and returns an action plan with a
confidence score. Review the plan, then approve it with 'sheriff execute'.

Example:
  sheriff scope https://github.com/octocat/hello 42`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, store, cleanup, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		issue, err := resolveIssue(ctx, store, args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Scoping issue #%d, this can take a few minutes...\n", issue.Number)
		scoped, err := orch.RequestScope(ctx, issue.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s Issue scoped\n", color.New(color.FgGreen).Sprint("✓"))
		printPlan(scoped)
		fmt.Printf("Approve with: sheriff execute %s %d\n", args[0], issue.Number)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan <repo-url> <issue-number>",
	Short: "Show the stored action plan for an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		issue, err := resolveIssue(ctx, store, args[0], args[1])
		if err != nil {
			return err
		}
		if issue.Plan == nil {
			return fmt.Errorf("issue #%d has no plan yet (run 'sheriff scope')", issue.Number)
		}
		printPlan(issue)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scopeCmd)
	rootCmd.AddCommand(planCmd)
}
