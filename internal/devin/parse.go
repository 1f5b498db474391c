package devin

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/devin-sheriff/sheriff/internal/types"
)

// Pre-compiled patterns for cleaning up agent output before JSON parsing
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)

	prURLRegex = regexp.MustCompile(`https://github\.com/[\w.-]+/[\w.-]+/pull/\d+`)
)

// ParseActionPlan extracts a structured plan from a scoping session's final
// output. Agents do not always return clean JSON, so parsing tries several
// strategies in order:
//
//  1. Direct JSON parse
//  2. Strip markdown code fences and retry
//  3. Remove trailing commas and retry
//  4. Extract the outermost JSON object from surrounding prose and retry
//
// If no strategy yields a valid plan the error wraps types.ErrMalformedResult.
func ParseActionPlan(text string) (*types.ActionPlan, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty scope result: %w", types.ErrMalformedResult)
	}

	candidates := []string{trimmed}

	if m := codeFenceRegex.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	last := candidates[len(candidates)-1]
	if cleaned := trailingCommaRegex.ReplaceAllString(last, "$1"); cleaned != last {
		candidates = append(candidates, cleaned)
	}

	if extracted := objectRegex.FindString(candidates[len(candidates)-1]); extracted != "" {
		candidates = append(candidates, extracted)
	}

	var lastErr error
	for _, candidate := range candidates {
		var plan types.ActionPlan
		if err := json.Unmarshal([]byte(candidate), &plan); err != nil {
			lastErr = err
			continue
		}
		if err := plan.Validate(); err != nil {
			lastErr = err
			continue
		}
		return &plan, nil
	}

	slog.Debug("all plan parsing strategies failed",
		"error", lastErr,
		"textPreview", truncate(text, 200))
	return nil, fmt.Errorf("could not parse action plan from scope result: %w", types.ErrMalformedResult)
}

// ParsePullRequestURL extracts the pull request URL from an execution
// session's final output. Returns an error wrapping types.ErrMalformedResult
// when no PR URL is present.
func ParsePullRequestURL(text string) (string, error) {
	// Prefer an explicit pr_url field if the agent returned JSON
	var payload struct {
		PRURL string `json:"pr_url"`
	}
	candidate := strings.TrimSpace(text)
	if m := codeFenceRegex.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil && payload.PRURL != "" {
		if prURLRegex.MatchString(payload.PRURL) {
			return payload.PRURL, nil
		}
	}

	if url := prURLRegex.FindString(text); url != "" {
		return url, nil
	}
	return "", fmt.Errorf("execute result contains no pull request URL: %w", types.ErrMalformedResult)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
