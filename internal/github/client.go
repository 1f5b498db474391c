// Package github wraps the GitHub REST API surface the orchestrator needs:
// repository lookup, open-issue listing, pull request check status, and issue
// closing. Requests are rate-limited client-side so patrol runs over many
// repositories stay inside GitHub's secondary rate limits.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/devin-sheriff/sheriff/internal/types"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	perPage        = 100
)

var repoURLRegex = regexp.MustCompile(`github\.com/([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`)

// ParseRepoURL extracts owner and name from a GitHub repository URL
func ParseRepoURL(url string) (owner, name string, err error) {
	m := repoURLRegex.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", "", fmt.Errorf("not a GitHub repository URL: %q", url)
	}
	return m[1], m[2], nil
}

// RemoteIssue is an open issue as reported by GitHub
type RemoteIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
}

// RepoInfo is the repository metadata needed to register a repo locally
type RepoInfo struct {
	Owner         string
	Name          string
	DefaultBranch string
	URL           string
}

// CheckState summarizes the combined CI status of a pull request's head
type CheckState string

const (
	ChecksPending CheckState = "pending"
	ChecksPassing CheckState = "passing"
	ChecksFailing CheckState = "failing"
)

// CheckStatus reports CI state for a pull request, with the names and
// summaries of failing runs for healing prompts.
type CheckStatus struct {
	State    CheckState
	Failures []CheckFailure
}

// CheckFailure is one failing check run
type CheckFailure struct {
	Name    string
	Summary string
}

// Client is the GitHub surface the orchestrator depends on
type Client interface {
	// Authenticate verifies the token and returns the authenticated login
	Authenticate(ctx context.Context) (string, error)

	// GetRepository fetches repository metadata by URL
	GetRepository(ctx context.Context, url string) (*RepoInfo, error)

	// ListOpenIssues returns all open issues, following pagination and
	// excluding pull requests.
	ListOpenIssues(ctx context.Context, owner, name string) ([]RemoteIssue, error)

	// GetCheckStatus reports the combined CI state of a pull request
	GetCheckStatus(ctx context.Context, prURL string) (*CheckStatus, error)

	// CloseIssue closes an issue, mapping insufficient token scopes to
	// types.ErrPermissionDenied.
	CloseIssue(ctx context.Context, owner, name string, number int) error
}

// RESTClient implements Client against api.github.com
type RESTClient struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// NewRESTClient creates a GitHub client. An empty baseURL means the public
// API.
func NewRESTClient(baseURL, token string) *RESTClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		// GitHub's secondary limit guidance is under 900 points/minute;
		// 5 req/s with a small burst keeps patrol well clear of it.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

func (c *RESTClient) Authenticate(ctx context.Context) (string, error) {
	var user struct {
		Login string `json:"login"`
	}
	if _, err := c.get(ctx, c.baseURL+"/user", &user); err != nil {
		return "", err
	}
	if user.Login == "" {
		return "", fmt.Errorf("user response missing login: %w", types.ErrMalformedResult)
	}
	return user.Login, nil
}

func (c *RESTClient) GetRepository(ctx context.Context, url string) (*RepoInfo, error) {
	owner, name, err := ParseRepoURL(url)
	if err != nil {
		return nil, err
	}

	var repo struct {
		DefaultBranch string `json:"default_branch"`
		HTMLURL       string `json:"html_url"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s", c.baseURL, owner, name), &repo); err != nil {
		return nil, err
	}
	return &RepoInfo{
		Owner:         owner,
		Name:          name,
		DefaultBranch: repo.DefaultBranch,
		URL:           repo.HTMLURL,
	}, nil
}

func (c *RESTClient) ListOpenIssues(ctx context.Context, owner, name string) ([]RemoteIssue, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues?state=open&per_page=%d", c.baseURL, owner, name, perPage)

	var issues []RemoteIssue
	for url != "" {
		// The issues endpoint returns PRs too; they carry a pull_request key
		var page []struct {
			RemoteIssue
			PullRequest *json.RawMessage `json:"pull_request"`
		}
		next, err := c.get(ctx, url, &page)
		if err != nil {
			return nil, err
		}
		for _, item := range page {
			if item.PullRequest != nil {
				continue
			}
			issues = append(issues, item.RemoteIssue)
		}
		url = next
	}
	return issues, nil
}

var prURLRegex = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)`)

func (c *RESTClient) GetCheckStatus(ctx context.Context, prURL string) (*CheckStatus, error) {
	m := prURLRegex.FindStringSubmatch(prURL)
	if m == nil {
		return nil, fmt.Errorf("not a pull request URL: %q", prURL)
	}
	owner, name, number := m[1], m[2], m[3]

	var pr struct {
		Head struct {
			SHA string `json:"sha"`
		} `json:"head"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/pulls/%s", c.baseURL, owner, name, number), &pr); err != nil {
		return nil, err
	}

	var runs struct {
		CheckRuns []struct {
			Name       string `json:"name"`
			Status     string `json:"status"`
			Conclusion string `json:"conclusion"`
			Output     struct {
				Summary string `json:"summary"`
			} `json:"output"`
		} `json:"check_runs"`
	}
	if _, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/commits/%s/check-runs", c.baseURL, owner, name, pr.Head.SHA), &runs); err != nil {
		return nil, err
	}

	status := &CheckStatus{State: ChecksPassing}
	for _, run := range runs.CheckRuns {
		if run.Status != "completed" {
			if status.State != ChecksFailing {
				status.State = ChecksPending
			}
			continue
		}
		switch run.Conclusion {
		case "success", "neutral", "skipped":
		default:
			status.State = ChecksFailing
			status.Failures = append(status.Failures, CheckFailure{
				Name:    run.Name,
				Summary: run.Output.Summary,
			})
		}
	}
	return status, nil
}

func (c *RESTClient) CloseIssue(ctx context.Context, owner, name string, number int) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, owner, name, number)
	body := strings.NewReader(`{"state": "closed"}`)

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkStatus(resp)
}

// get performs an authenticated GET, decodes the JSON body into out, and
// returns the pagination "next" link if present.
func (c *RESTClient) get(ctx context.Context, url string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return "", err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return "", fmt.Errorf("failed to decode GitHub response: %w", types.ErrMalformedResult)
	}
	return nextPageURL(resp.Header.Get("Link")), nil
}

func (c *RESTClient) send(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, fmt.Errorf("GitHub API request failed: %w", err)
	}
	return resp, nil
}

func (c *RESTClient) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("GitHub rejected token (HTTP 401): %w", types.ErrAuth)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("GitHub denied access (HTTP 403): %w", types.ErrPermissionDenied)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("GitHub resource not found: %w", types.ErrNotFound)
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GitHub API returned HTTP %d: %s", resp.StatusCode, string(data))
	}
}

// nextPageURL parses the RFC 5988 Link header for the rel="next" URL
func nextPageURL(header string) string {
	for _, part := range strings.Split(header, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) == `rel="next"` {
			url := strings.TrimSpace(section[0])
			return strings.Trim(url, "<>")
		}
	}
	return ""
}
