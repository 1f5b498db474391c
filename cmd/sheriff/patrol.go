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

	"github.com/devin-sheriff/sheriff/internal/orchestrator"
)

// patroller lets the patrol loop be tested without live clients
type patroller interface {
	Patrol(ctx context.Context) (*orchestrator.PatrolResult, error)
}

var patrolEvery time.Duration

var patrolCmd = &cobra.Command{
	Use:   "patrol",
	Short: "Run a maintenance pass over every connected repository",
	Long: `Sync each connected repository, scope every NEW issue, and check every
open pull request, healing failing checks within each issue's budget. Issues
are processed concurrently; one issue's failure never stops the rest.

Execution still requires explicit approval: patrol scopes issues but never
runs 'execute' on its own.

With --every, patrol keeps running passes at the given interval until
interrupted. Useful as a light alternative to a cron entry.

Example:
  sheriff patrol --every 15m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if patrolEvery <= 0 {
			ctx := context.Background()
			orch, _, cleanup, err := newOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			return runPatrol(ctx, orch)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orch, _, cleanup, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		ticker := time.NewTicker(patrolEvery)
		defer ticker.Stop()

		for {
			if err := runPatrol(ctx, orch); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "patrol pass failed: %v\n", err)
			}
			select {
			case <-ctx.Done():
				fmt.Println("\nStopping patrol.")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func runPatrol(ctx context.Context, orch patroller) error {
	result, err := orch.Patrol(ctx)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	for _, sr := range result.Synced {
		fmt.Printf("%s %s: %d new, %d updated, %d closed\n",
			green("✓"), sr.Repo, sr.New, sr.Updated, sr.Closed)
	}
	fmt.Printf("%s Patrol done: %d scoped, %d PRs checked\n", green("✓"), result.Scoped, result.Checked)

	if len(result.Errors) > 0 {
		red := color.New(color.FgRed).SprintFunc()
		for _, e := range result.Errors {
			fmt.Printf("%s %v\n", red("✗"), e)
		}
		return fmt.Errorf("%d issue(s) failed during patrol", len(result.Errors))
	}
	return nil
}

func init() {
	patrolCmd.Flags().DurationVar(&patrolEvery, "every", 0, "keep running passes at this interval (0 runs a single pass)")
	rootCmd.AddCommand(patrolCmd)
}
