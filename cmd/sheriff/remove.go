package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <repo-url>",
	Short: "Disconnect a repository",
	Long: `Remove a repository and all of its tracked issues and session history
from the local database. Nothing is changed on GitHub.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		repo, err := store.GetRepository(ctx, args[0])
		if err != nil {
			return err
		}
		if repo == nil {
			return fmt.Errorf("repository %s not connected", args[0])
		}
		if err := store.RemoveRepository(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Removed %s\n", color.New(color.FgGreen).Sprint("✓"), repo.FullName())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
