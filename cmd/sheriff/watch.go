package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/types"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <repo-url> <issue-number>",
	Short: "Watch an issue's pull request checks until it settles",
	Long: `Poll the pull request checks for one issue, healing failures within the
issue's budget, until the issue reaches DONE or FAILED or the watch is
interrupted.

Example:
  sheriff watch https://github.com/octocat/hello 42 --interval 1m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orch, store, cleanup, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		issue, err := resolveIssue(ctx, store, args[0], args[1])
		if err != nil {
			return err
		}
		if issue.Status != types.StatusPROpen {
			return fmt.Errorf("issue #%d is %s, not PR_OPEN; nothing to watch", issue.Number, issue.Status)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("Watching checks for %s (issue #%d)...\n", issue.PRURL, issue.Number)

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			issue, err = orch.CheckAndHeal(ctx, issue.ID)
			if err != nil {
				if ctx.Err() != nil {
					fmt.Println("\nStopping watch.")
					return nil
				}
				return err
			}
			switch issue.Status {
			case types.StatusDone:
				fmt.Printf("%s Checks passed, issue #%d closed.\n", green("✓"), issue.Number)
				return nil
			case types.StatusFailed:
				return fmt.Errorf("issue #%d failed: %s", issue.Number, issue.LastError)
			}

			select {
			case <-ctx.Done():
				fmt.Println("\nStopping watch.")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Minute, "time between check polls")
	rootCmd.AddCommand(watchCmd)
}
