package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/types"
)

var healCmd = &cobra.Command{
	Use:   "heal <repo-url> <issue-number>",
	Short: "Check an issue's pull request and heal failing checks",
	Long: `Inspect CI on the issue's pull request. Passing checks mark the issue
DONE and close it on GitHub; failing checks dispatch a healing session that
fixes the failures on the same pull request. Each heal consumes one attempt
from the issue's bounded budget.`,
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

		result, err := orch.CheckAndHeal(ctx, issue.ID)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		switch result.Status {
		case types.StatusDone:
			fmt.Printf("%s Checks passing; issue #%d closed\n", green("✓"), result.Number)
		case types.StatusPROpen:
			if result.HealAttempts > issue.HealAttempts {
				fmt.Printf("%s Heal session finished, PR updated (attempt %d)\n", green("✓"), result.HealAttempts)
			} else {
				fmt.Printf("Checks still running for %s\n", result.PRURL)
			}
		default:
			fmt.Printf("Issue #%d is now %s\n", result.Number, result.Status)
		}
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <repo-url> <issue-number>",
	Short: "Mark an issue resolved and close it on GitHub",
	Args:  cobra.ExactArgs(2),
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
		result, err := orch.MarkDone(ctx, issue.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s Issue #%d done\n", color.New(color.FgGreen).Sprint("✓"), result.Number)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <repo-url> <issue-number>",
	Short: "Return an issue to NEW, discarding its plan and PR reference",
	Long: `Reset an issue's workflow state. This clears the stored plan,
confidence, pull request reference, heal budget, and any stale in-flight
marker left behind by a crash. Use it to retry a FAILED issue from scratch.`,
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
		if _, err := orch.Reset(ctx, issue.ID); err != nil {
			return err
		}
		fmt.Printf("%s Issue #%d reset to NEW\n", color.New(color.FgGreen).Sprint("✓"), issue.Number)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(resetCmd)
}
