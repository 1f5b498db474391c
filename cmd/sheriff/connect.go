package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/config"
	"github.com/devin-sheriff/sheriff/internal/github"
	"github.com/devin-sheriff/sheriff/internal/types"
)

var connectCmd = &cobra.Command{
	Use:   "connect <repo-url>",
	Short: "Register a GitHub repository and pull its open issues",
	Long: `Register a repository with the sheriff and run an initial sync.

Example:
  sheriff connect https://github.com/octocat/hello-world`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoURL := args[0]
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w (run 'sheriff setup')", err)
		}

		gh := github.NewRESTClient("", cfg.GitHubToken)
		info, err := gh.GetRepository(ctx, repoURL)
		if err != nil {
			return fmt.Errorf("failed to look up repository: %w", err)
		}

		orch, store, cleanup, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if info.URL == "" {
			info.URL = repoURL
		}
		repo := &types.Repository{
			Owner:         info.Owner,
			Name:          info.Name,
			URL:           info.URL,
			DefaultBranch: info.DefaultBranch,
			CreatedAt:     time.Now(),
		}
		if err := store.UpsertRepository(ctx, repo); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Connected %s (default branch %s)\n",
			green("✓"), cyan(repo.FullName()), repo.DefaultBranch)

		result, err := orch.Sync(ctx, repo.URL)
		if err != nil {
			return fmt.Errorf("initial sync failed: %w", err)
		}
		fmt.Printf("%s Synced %d open issue(s)\n", green("✓"), result.New)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
