// Package rules supplies the governance rule set injected into every remote
// prompt. Rules live in a user-editable YAML document and are read at
// prompt-assembly time only, never cached across job invocations, so edits
// take effect on the next job.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleSet maps a rule name to its free-form guidance text
type RuleSet map[string]string

// Document is the on-disk rules layout: a global section plus optional
// per-repository ("owner/name") overrides.
type Document struct {
	Global RuleSet            `yaml:"global,omitempty"`
	Repos  map[string]RuleSet `yaml:"repos,omitempty"`
}

// Provider reads the governance rules document
type Provider struct {
	path string
}

// DefaultPath returns the standard rules file location
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".devin-sheriff", "rules.yaml")
	}
	return filepath.Join(home, ".devin-sheriff", "rules.yaml")
}

// NewProvider creates a rules provider. An empty path means the default
// location.
func NewProvider(path string) *Provider {
	if path == "" {
		path = DefaultPath()
	}
	return &Provider{path: path}
}

// Load reads the rules document from disk. A missing file yields an empty
// document so a fresh install works without any rules authored.
func (p *Provider) Load() (*Document, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return &Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", p.path, err)
	}
	return &doc, nil
}

// ResolveFor returns the effective rule set for a repository: global rules
// with repo-specific rules overriding by name. The document is re-read on
// every call.
func (p *Provider) ResolveFor(repoFullName string) (RuleSet, error) {
	doc, err := p.Load()
	if err != nil {
		return nil, err
	}

	merged := make(RuleSet, len(doc.Global))
	for name, text := range doc.Global {
		merged[name] = text
	}
	if repo, ok := doc.Repos[repoFullName]; ok {
		for name, text := range repo {
			merged[name] = text
		}
	}
	return merged, nil
}

// Save writes the rules document, creating the directory if needed
func (p *Provider) Save(doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	return nil
}

// Render formats a rule set deterministically for prompt injection: rule
// names sorted, one "name: text" block per rule. Identical rule sets always
// render to identical text.
func (r RuleSet) Render() string {
	if len(r) == 0 {
		return ""
	}
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(r[name]))
		b.WriteString("\n")
	}
	return b.String()
}
