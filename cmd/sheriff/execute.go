package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/config"
	"github.com/devin-sheriff/sheriff/internal/types"
)

var (
	executeForce    bool
	executePlanFile string
)

var executeCmd = &cobra.Command{
	Use:   "execute <repo-url> <issue-number>",
	Short: "Approve a plan and open a pull request for it",
	Long: `Approve the stored action plan for a scoped issue and dispatch an
execution session. The agent implements the plan exactly as reviewed and
opens a pull request against the default branch.

High-risk plans (touching sensitive paths, or spanning many files) require
--force as an explicit acknowledgement.

Example:
  sheriff execute https://github.com/octocat/hello 42`,
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
		if issue.Plan == nil {
			return fmt.Errorf("issue #%d has no plan yet (run 'sheriff scope')", issue.Number)
		}

		var edited *types.ActionPlan
		if executePlanFile != "" {
			edited, err = readPlanFile(executePlanFile)
			if err != nil {
				return err
			}
			issue.Plan = edited
		}

		if risk := issue.RiskLevel(config.DefaultWorkflowConfig().Risk); risk == types.RiskHigh && !executeForce {
			printPlan(issue)
			return fmt.Errorf("plan is high risk; re-run with --force to approve it")
		}

		fmt.Printf("Executing plan for issue #%d, this can take a while...\n", issue.Number)
		done, err := orch.RequestExecute(ctx, issue.ID, edited)
		if err != nil {
			return err
		}
		fmt.Printf("%s Pull request opened: %s\n", color.New(color.FgGreen).Sprint("✓"), done.PRURL)
		return nil
	},
}

func readPlanFile(path string) (*types.ActionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	var plan types.ActionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan file %s: %w", path, err)
	}
	return &plan, nil
}

func init() {
	executeCmd.Flags().BoolVar(&executeForce, "force", false, "approve a high-risk plan")
	executeCmd.Flags().StringVar(&executePlanFile, "plan-file", "", "JSON file with an edited plan to execute instead of the stored one")
	rootCmd.AddCommand(executeCmd)
}
