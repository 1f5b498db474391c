package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/devin-sheriff/sheriff/internal/config"
	"github.com/devin-sheriff/sheriff/internal/devin"
	"github.com/devin-sheriff/sheriff/internal/github"
	"github.com/devin-sheriff/sheriff/internal/notify"
	"github.com/devin-sheriff/sheriff/internal/orchestrator"
	"github.com/devin-sheriff/sheriff/internal/rules"
	"github.com/devin-sheriff/sheriff/internal/storage"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sheriff",
	Short: "AI-assisted issue resolution for GitHub repositories",
	Long: `Devin Sheriff watches connected GitHub repositories and drives their
issues through a two-phase workflow: a remote agent scopes each issue into a
reviewable action plan, and once you approve the plan a second session
implements it and opens a pull request. Failing PR checks are healed
automatically, a bounded number of times, before a human is paged.

Start with 'sheriff setup' to store credentials, then 'sheriff connect' to
register a repository.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// openStore opens the sheriff database at the default location
func openStore(ctx context.Context) (storage.Storage, error) {
	store, err := storage.NewStorage(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

// newOrchestrator wires the orchestrator from saved config. The store is
// returned alongside it so commands can resolve issues over the same
// connection; the returned cleanup closes it.
func newOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, storage.Storage, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w (run 'sheriff setup')", err)
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Store:    store,
		GitHub:   github.NewRESTClient("", cfg.GitHubToken),
		Jobs:     devin.NewHTTPClient(cfg.DevinAPIURL, cfg.DevinAPIKey),
		Rules:    rules.NewProvider(""),
		Notifier: webhookNotifier(cfg.WebhookURL),
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return orch, store, func() { store.Close() }, nil
}

// webhookNotifier adapts the optional webhook into the orchestrator's
// Notifier; a nil *Webhook must become a nil interface.
func webhookNotifier(url string) orchestrator.Notifier {
	wh := notify.NewWebhook(url)
	if wh == nil {
		return nil
	}
	return wh
}
