package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/config"
	"github.com/devin-sheriff/sheriff/internal/devin"
	"github.com/devin-sheriff/sheriff/internal/github"
	"github.com/devin-sheriff/sheriff/internal/notify"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store and verify credentials",
	Long: `Interactively collect the GitHub token, Devin API key, and optional
notification webhook, verify them against the live services, and save them to
the sheriff config file.

Values already configured are kept when the prompt is left empty. Environment
variables (SHERIFF_GITHUB_TOKEN, SHERIFF_DEVIN_API_KEY, SHERIFF_WEBHOOK_URL)
override the saved file at run time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rl, err := readline.New("")
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		defer rl.Close()

		cyan := color.New(color.FgCyan).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("Devin Sheriff setup"))

		if v, err := promptSecret(rl, "GitHub token", cfg.GitHubToken); err != nil {
			return err
		} else if v != "" {
			cfg.GitHubToken = v
		}
		if v, err := promptSecret(rl, "Devin API key", cfg.DevinAPIKey); err != nil {
			return err
		} else if v != "" {
			cfg.DevinAPIKey = v
		}
		if v, err := promptValue(rl, "Webhook URL (optional, Slack or Discord)", cfg.WebhookURL); err != nil {
			return err
		} else if v != "" {
			cfg.WebhookURL = v
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := context.Background()
		fmt.Println()

		gh := github.NewRESTClient("", cfg.GitHubToken)
		login, err := gh.Authenticate(ctx)
		if err != nil {
			fmt.Printf("%s GitHub: %v\n", red("✗"), err)
			return fmt.Errorf("GitHub token verification failed")
		}
		fmt.Printf("%s GitHub: authenticated as %s\n", green("✓"), login)

		jobs := devin.NewHTTPClient(cfg.DevinAPIURL, cfg.DevinAPIKey)
		if err := jobs.VerifyAuth(ctx); err != nil {
			fmt.Printf("%s Devin: %v\n", red("✗"), err)
			return fmt.Errorf("Devin API key verification failed")
		}
		fmt.Printf("%s Devin: API key accepted\n", green("✓"))

		if cfg.WebhookURL != "" {
			if wh := notify.NewWebhook(cfg.WebhookURL); wh != nil {
				if err := wh.Test(ctx); err != nil {
					fmt.Printf("%s Webhook: %v\n", red("✗"), err)
					return fmt.Errorf("webhook test delivery failed")
				}
				fmt.Printf("%s Webhook: test message delivered\n", green("✓"))
			}
		}

		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("\n%s Config saved to %s\n", green("✓"), config.Path())
		return nil
	},
}

func promptValue(rl *readline.Instance, label, current string) (string, error) {
	suffix := ""
	if current != "" {
		suffix = " [configured, enter to keep]"
	}
	rl.SetPrompt(fmt.Sprintf("%s%s: ", label, suffix))
	line, err := rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err.Error() == "EOF" {
			return "", fmt.Errorf("setup aborted")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(rl *readline.Instance, label, current string) (string, error) {
	suffix := ": "
	if current != "" {
		suffix = " [configured, enter to keep]: "
	}
	data, err := rl.ReadPassword(label + suffix)
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", fmt.Errorf("setup aborted")
		}
		// Non-interactive stdin cannot mask input; fall back to a plain read
		return promptValue(rl, label, current)
	}
	return strings.TrimSpace(string(data)), nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
