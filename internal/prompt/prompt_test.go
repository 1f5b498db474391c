package prompt

import (
	"strings"
	"testing"

	"github.com/devin-sheriff/sheriff/internal/rules"
	"github.com/devin-sheriff/sheriff/internal/types"
)

func testIssue() *types.Issue {
	return &types.Issue{
		ID:     1,
		RepoID: 1,
		Number: 42,
		Title:  "Fix login timeout",
		Body:   "Sessions expire after 5 minutes instead of 30.",
		Status: types.StatusNew,
	}
}

func testPlan() *types.ActionPlan {
	return &types.ActionPlan{
		Summary:    "Raise the session TTL to 30 minutes.",
		Steps:      []string{"Update session config", "Add regression test"},
		Files:      []string{"internal/session/config.go"},
		Confidence: 85,
	}
}

func TestBuildScope(t *testing.T) {
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	out, err := b.BuildScope(&Context{
		Repo:  "octocat/hello",
		Issue: testIssue(),
		Rules: rules.RuleSet{"tests": "Always add tests"},
	})
	if err != nil {
		t.Fatalf("BuildScope() error = %v", err)
	}

	for _, want := range []string{
		"GOVERNANCE RULES",
		"- tests: Always add tests",
		"octocat/hello",
		"Issue #42",
		"Fix login timeout",
		"Sessions expire after 5 minutes",
		`"confidence"`,
		"Do NOT make any code changes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scope prompt missing %q", want)
		}
	}
}

func TestBuildScopeOmitsEmptySections(t *testing.T) {
	b, _ := NewBuilder()
	issue := testIssue()
	issue.Body = ""

	out, err := b.BuildScope(&Context{Repo: "octocat/hello", Issue: issue})
	if err != nil {
		t.Fatalf("BuildScope() error = %v", err)
	}
	if strings.Contains(out, "GOVERNANCE RULES") {
		t.Error("prompt should omit rules section when no rules configured")
	}
	if strings.Contains(out, "## Description") {
		t.Error("prompt should omit description section for empty body")
	}
}

func TestBuildExecuteEmbedsPlanVerbatim(t *testing.T) {
	b, _ := NewBuilder()
	plan := testPlan()

	out, err := b.BuildExecute(&Context{
		Repo:  "octocat/hello",
		Issue: testIssue(),
		Plan:  plan,
	})
	if err != nil {
		t.Fatalf("BuildExecute() error = %v", err)
	}

	if !strings.Contains(out, plan.Summary) {
		t.Error("execute prompt missing plan summary")
	}
	for _, step := range plan.Steps {
		if !strings.Contains(out, "- "+step) {
			t.Errorf("execute prompt missing step %q", step)
		}
	}
	for _, f := range plan.Files {
		if !strings.Contains(out, "- "+f) {
			t.Errorf("execute prompt missing file %q", f)
		}
	}
	if strings.Contains(out, "PREVIOUS ATTEMPT FAILED") {
		t.Error("fresh execute prompt should not contain failure section")
	}
}

func TestBuildExecuteHealIncludesFailureContext(t *testing.T) {
	b, _ := NewBuilder()

	out, err := b.BuildExecute(&Context{
		Repo:           "octocat/hello",
		Issue:          testIssue(),
		Plan:           testPlan(),
		PRURL:          "https://github.com/octocat/hello/pull/7",
		FailureContext: "ci/test: TestLogin failed",
	})
	if err != nil {
		t.Fatalf("BuildExecute() error = %v", err)
	}
	if !strings.Contains(out, "PREVIOUS ATTEMPT FAILED") {
		t.Error("heal prompt missing failure section")
	}
	if !strings.Contains(out, "https://github.com/octocat/hello/pull/7") {
		t.Error("heal prompt missing PR URL")
	}
	if !strings.Contains(out, "ci/test: TestLogin failed") {
		t.Error("heal prompt missing failure details")
	}
	if !strings.Contains(out, "do not open a new one") {
		t.Error("heal prompt missing same-PR instruction")
	}
}

func TestBuildExecuteRequiresPlan(t *testing.T) {
	b, _ := NewBuilder()
	if _, err := b.BuildExecute(&Context{Repo: "a/b", Issue: testIssue()}); err == nil {
		t.Error("expected error for missing plan")
	}
}

func TestBuildDeterministic(t *testing.T) {
	b, _ := NewBuilder()
	ctx := &Context{
		Repo:  "octocat/hello",
		Issue: testIssue(),
		Rules: rules.RuleSet{"b": "second", "a": "first", "c": "third"},
		Plan:  testPlan(),
	}

	first, err := b.BuildExecute(ctx)
	if err != nil {
		t.Fatalf("BuildExecute() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := b.BuildExecute(ctx)
		if err != nil {
			t.Fatalf("BuildExecute() error = %v", err)
		}
		if again != first {
			t.Fatal("identical context produced different prompts")
		}
	}
}
