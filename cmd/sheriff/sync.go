package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [repo-url]",
	Short: "Reconcile tracked issues with GitHub",
	Long: `Fetch the current open issues for a repository and reconcile local
state: new issues are added as NEW, re-opened issues come back into the
workflow, and issues closed on GitHub are marked DONE locally.

Without an argument, every connected repository is synced.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		orch, store, cleanup, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		var urls []string
		if len(args) == 1 {
			urls = []string{args[0]}
		} else {
			repos, err := store.ListRepositories(ctx)
			if err != nil {
				return err
			}
			for _, repo := range repos {
				urls = append(urls, repo.URL)
			}
		}
		if len(urls) == 0 {
			fmt.Println("No repositories connected. Run 'sheriff connect <repo-url>'.")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		var failed bool
		for _, url := range urls {
			result, err := orch.Sync(ctx, url)
			if err != nil {
				fmt.Printf("%s %s: %v\n", color.New(color.FgRed).Sprint("✗"), url, err)
				failed = true
				continue
			}
			fmt.Printf("%s %s: %d new, %d updated, %d closed\n",
				green("✓"), result.Repo, result.New, result.Updated, result.Closed)
		}
		if failed {
			return fmt.Errorf("one or more repositories failed to sync")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
