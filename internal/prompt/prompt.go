// Package prompt assembles the text sent to the remote coding agent. Prompts
// are built from structured templates so the same inputs always produce the
// same output, which keeps session records reproducible and diffable.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/devin-sheriff/sheriff/internal/rules"
	"github.com/devin-sheriff/sheriff/internal/types"
)

// Builder constructs scoping and execution prompts from issue context
type Builder struct {
	scopeTmpl   *template.Template
	executeTmpl *template.Template
}

// scopeTemplate asks the agent to investigate an issue and respond with a
// structured plan. The JSON contract here must stay in sync with
// devin.ParseActionPlan.
const scopeTemplate = `You are scoping a GitHub issue before any code is written.

{{if .Rules -}}
# GOVERNANCE RULES

The following rules are binding for all work in this repository:

{{.Rules}}
{{end -}}
# ISSUE

**Repository**: {{.Repo}}
**Issue #{{.Issue.Number}}**: {{.Issue.Title}}

{{if .Issue.Body -}}
## Description
{{.Issue.Body}}

{{end -}}
# YOUR TASK

Investigate this issue in the repository. Do NOT make any code changes.
Produce a concrete action plan describing how you would resolve it.

Respond with a single JSON object in exactly this shape:

{
  "summary": "one-paragraph description of the fix",
  "steps": ["ordered implementation steps"],
  "files": ["paths of files you expect to change"],
  "confidence": 0
}

Confidence is an integer from 0 to 100 reflecting how certain you are the
plan resolves the issue. Be honest: a low confidence on a vague issue is
more useful than false certainty.`

// executeTemplate carries the approved plan verbatim. The agent implements
// exactly what was reviewed, opens a PR, and reports the PR URL.
const executeTemplate = `You are implementing an approved plan for a GitHub issue.

{{if .Rules -}}
# GOVERNANCE RULES

The following rules are binding for all work in this repository:

{{.Rules}}
{{end -}}
# ISSUE

**Repository**: {{.Repo}}
**Issue #{{.Issue.Number}}**: {{.Issue.Title}}

{{if .Issue.Body -}}
## Description
{{.Issue.Body}}

{{end -}}
# APPROVED PLAN

{{.Plan.Summary}}

## Steps
{{range .Plan.Steps -}}
- {{.}}
{{end}}
## Files
{{range .Plan.Files -}}
- {{.}}
{{end}}
{{if .FailureContext -}}
# PREVIOUS ATTEMPT FAILED

The pull request for this plan has failing checks. Fix the failures and
update the same pull request; do not open a new one.

{{if .PRURL -}}
Pull request: {{.PRURL}}
{{end -}}
Failure details:
{{.FailureContext}}

{{end -}}
# EXECUTION DIRECTIVE

Implement the plan exactly as written. Do not expand scope beyond the
listed steps and files unless a step is impossible without it. When the
work is complete, open a pull request against the default branch and
include its URL in your final message.`

// NewBuilder parses the prompt templates
func NewBuilder() (*Builder, error) {
	scope, err := template.New("scope").Parse(scopeTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scope template: %w", err)
	}
	execute, err := template.New("execute").Parse(executeTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse execute template: %w", err)
	}
	return &Builder{scopeTmpl: scope, executeTmpl: execute}, nil
}

// Context carries everything a prompt can reference
type Context struct {
	Repo           string
	Issue          *types.Issue
	Rules          rules.RuleSet
	Plan           *types.ActionPlan
	PRURL          string
	FailureContext string
}

// BuildScope renders the scoping prompt for an issue
func (b *Builder) BuildScope(ctx *Context) (string, error) {
	if ctx == nil || ctx.Issue == nil {
		return "", fmt.Errorf("issue cannot be nil in prompt context")
	}
	return b.render(b.scopeTmpl, ctx)
}

// BuildExecute renders the execution prompt. The approved plan is embedded
// verbatim; a non-empty FailureContext turns this into a healing prompt for
// a failing pull request.
func (b *Builder) BuildExecute(ctx *Context) (string, error) {
	if ctx == nil || ctx.Issue == nil {
		return "", fmt.Errorf("issue cannot be nil in prompt context")
	}
	if ctx.Plan == nil {
		return "", fmt.Errorf("execute prompt requires an approved plan")
	}
	return b.render(b.executeTmpl, ctx)
}

func (b *Builder) render(tmpl *template.Template, ctx *Context) (string, error) {
	data := struct {
		Repo           string
		Issue          *types.Issue
		Rules          string
		Plan           *types.ActionPlan
		PRURL          string
		FailureContext string
	}{
		Repo:           ctx.Repo,
		Issue:          ctx.Issue,
		Rules:          ctx.Rules.Render(),
		Plan:           ctx.Plan,
		PRURL:          ctx.PRURL,
		FailureContext: strings.TrimSpace(ctx.FailureContext),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
