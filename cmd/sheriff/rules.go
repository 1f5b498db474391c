package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/github"
	"github.com/devin-sheriff/sheriff/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [repo-url]",
	Short: "Show the governance rules injected into prompts",
	Long: `Print the effective governance rule set. Without an argument the global
rules are shown; with a repository URL the merged global plus repo-specific
rules are shown, exactly as they will be rendered into the next prompt.

Rules live in ` + rules.DefaultPath() + ` and are re-read before every
session, so edits apply immediately.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := rules.NewProvider("")

		target := "global"
		var set rules.RuleSet
		if len(args) == 1 {
			owner, name, err := github.ParseRepoURL(args[0])
			if err != nil {
				return err
			}
			target = owner + "/" + name
			set, err = provider.ResolveFor(target)
			if err != nil {
				return err
			}
		} else {
			doc, err := provider.Load()
			if err != nil {
				return err
			}
			set = doc.Global
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("Rules (%s):\n", cyan(target))
		rendered := set.Render()
		if rendered == "" {
			fmt.Printf("  none configured (edit %s)\n", rules.DefaultPath())
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
