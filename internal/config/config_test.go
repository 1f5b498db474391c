package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsEmptyConfig(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.GitHubToken != "" || cfg.DevinAPIKey != "" {
		t.Errorf("expected empty credentials, got %+v", cfg)
	}
	if cfg.DevinAPIURL != DefaultDevinAPIURL {
		t.Errorf("default Devin URL not applied: %q", cfg.DevinAPIURL)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &AppConfig{
		GitHubToken: "ghp_test",
		DevinAPIKey: "devin_test",
		DevinAPIURL: "https://devin.example.com/v1",
		WebhookURL:  "https://hooks.slack.com/services/T/B/x",
	}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Config holds tokens; it must not be world readable
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, cfg)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &AppConfig{GitHubToken: "from-file", DevinAPIKey: "from-file"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	t.Setenv(EnvGitHubToken, "from-env")
	t.Setenv(EnvDevinAPIURL, "https://proxy.example.com/v1")

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.GitHubToken != "from-env" {
		t.Errorf("env override lost: %q", got.GitHubToken)
	}
	if got.DevinAPIKey != "from-file" {
		t.Errorf("file value lost: %q", got.DevinAPIKey)
	}
	if got.DevinAPIURL != "https://proxy.example.com/v1" {
		t.Errorf("env URL override lost: %q", got.DevinAPIURL)
	}
}

func TestValidateRequiresBothCredentials(t *testing.T) {
	cfg := &AppConfig{GitHubToken: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("missing Devin key should fail validation")
	}
	cfg = &AppConfig{DevinAPIKey: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("missing GitHub token should fail validation")
	}
	cfg = &AppConfig{GitHubToken: "x", DevinAPIKey: "y"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete config should validate: %v", err)
	}
}

func TestDefaultWorkflowConfig(t *testing.T) {
	wf := DefaultWorkflowConfig()
	if wf.ScopeTimeout.Minutes() != 5 {
		t.Errorf("scope timeout = %v, want 5m", wf.ScopeTimeout)
	}
	if wf.ExecuteTimeout.Minutes() != 10 {
		t.Errorf("execute timeout = %v, want 10m", wf.ExecuteTimeout)
	}
	if wf.MaxHealAttempts != 3 {
		t.Errorf("heal bound = %d, want 3", wf.MaxHealAttempts)
	}
	if wf.PollQueryRetries != 3 {
		t.Errorf("poll query retries = %d, want 3", wf.PollQueryRetries)
	}
}
