// Package config handles the sheriff configuration record: credentials and
// service endpoints persisted at ~/.devin-sheriff/config.json, with
// environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Environment variable overrides. These win over the config file, which
// keeps credentials out of the file on CI and shared machines.
const (
	EnvGitHubToken  = "SHERIFF_GITHUB_TOKEN"
	EnvDevinAPIKey  = "SHERIFF_DEVIN_API_KEY"
	EnvDevinAPIURL  = "SHERIFF_DEVIN_API_URL"
	EnvWebhookURL   = "SHERIFF_WEBHOOK_URL"
)

// DefaultDevinAPIURL is the default Devin service endpoint
const DefaultDevinAPIURL = "https://api.devin.ai/v1"

// AppConfig is the persisted configuration record
type AppConfig struct {
	GitHubToken string `json:"github_token,omitempty"`
	DevinAPIKey string `json:"devin_api_key,omitempty"`
	DevinAPIURL string `json:"devin_api_url,omitempty"`
	WebhookURL  string `json:"webhook_url,omitempty"`
}

// Dir returns the sheriff configuration directory (~/.devin-sheriff)
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devin-sheriff"
	}
	return filepath.Join(home, ".devin-sheriff")
}

// Path returns the config file location
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads the config file and applies environment overrides. A missing
// file is not an error: it yields an empty config so first-run commands can
// point the user at setup.
func Load() (*AppConfig, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config file from an explicit path (used by tests)
func LoadFrom(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(cfg)

	if cfg.DevinAPIURL == "" {
		cfg.DevinAPIURL = DefaultDevinAPIURL
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvGitHubToken); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv(EnvDevinAPIKey); v != "" {
		cfg.DevinAPIKey = v
	}
	if v := os.Getenv(EnvDevinAPIURL); v != "" {
		cfg.DevinAPIURL = v
	}
	if v := os.Getenv(EnvWebhookURL); v != "" {
		cfg.WebhookURL = v
	}
}

// Save writes the config file with owner-only permissions (it holds tokens)
func (c *AppConfig) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to an explicit path (used by tests)
func (c *AppConfig) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks that both collaborator credentials are present
func (c *AppConfig) Validate() error {
	if c.GitHubToken == "" {
		return fmt.Errorf("github token missing: run 'sheriff setup' or set %s", EnvGitHubToken)
	}
	if c.DevinAPIKey == "" {
		return fmt.Errorf("devin api key missing: run 'sheriff setup' or set %s", EnvDevinAPIKey)
	}
	return nil
}
