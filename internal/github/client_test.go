package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devin-sheriff/sheriff/internal/types"
)

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url       string
		owner     string
		name      string
		shouldErr bool
	}{
		{"https://github.com/octocat/hello", "octocat", "hello", false},
		{"https://github.com/octocat/hello.git", "octocat", "hello", false},
		{"https://github.com/octocat/hello/", "octocat", "hello", false},
		{"github.com/octocat/hello-world", "octocat", "hello-world", false},
		{"https://gitlab.com/octocat/hello", "", "", true},
		{"not a url", "", "", true},
	}
	for _, tt := range tests {
		owner, name, err := ParseRepoURL(tt.url)
		if tt.shouldErr {
			if err == nil {
				t.Errorf("ParseRepoURL(%q) expected error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRepoURL(%q) error = %v", tt.url, err)
			continue
		}
		if owner != tt.owner || name != tt.name {
			t.Errorf("ParseRepoURL(%q) = %q/%q, want %q/%q", tt.url, owner, name, tt.owner, tt.name)
		}
	}
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gh-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"login": "octocat"}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "gh-token")
	login, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if login != "octocat" {
		t.Errorf("login = %q", login)
	}
}

func TestAuthenticateBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "bad")
	if _, err := c.Authenticate(context.Background()); !errors.Is(err, types.ErrAuth) {
		t.Errorf("error = %v, want ErrAuth", err)
	}
}

func TestListOpenIssuesPaginationSkipsPRs(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "2":
			w.Write([]byte(`[{"number": 3, "title": "third", "state": "open"}]`))
		default:
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/issues?page=2>; rel="next"`, srv.URL))
			w.Write([]byte(`[
				{"number": 1, "title": "first", "state": "open"},
				{"number": 2, "title": "a PR", "state": "open", "pull_request": {"url": "x"}}
			]`))
		}
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "t")
	issues, err := c.ListOpenIssues(context.Background(), "o", "r")
	if err != nil {
		t.Fatalf("ListOpenIssues() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2 (PR skipped)", len(issues))
	}
	if issues[0].Number != 1 || issues[1].Number != 3 {
		t.Errorf("unexpected issues: %+v", issues)
	}
}

func TestGetCheckStatus(t *testing.T) {
	tests := []struct {
		name      string
		runsJSON  string
		wantState CheckState
		failures  int
	}{
		{
			"all passing",
			`{"check_runs": [{"name": "test", "status": "completed", "conclusion": "success"}]}`,
			ChecksPassing, 0,
		},
		{
			"one failing",
			`{"check_runs": [
				{"name": "test", "status": "completed", "conclusion": "failure", "output": {"summary": "boom"}},
				{"name": "lint", "status": "completed", "conclusion": "success"}
			]}`,
			ChecksFailing, 1,
		},
		{
			"still running",
			`{"check_runs": [{"name": "test", "status": "in_progress"}]}`,
			ChecksPending, 0,
		},
		{
			"no checks configured",
			`{"check_runs": []}`,
			ChecksPassing, 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/repos/o/r/pulls/5":
					w.Write([]byte(`{"head": {"sha": "abc"}}`))
				case "/repos/o/r/commits/abc/check-runs":
					w.Write([]byte(tt.runsJSON))
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
				}
			}))
			defer srv.Close()

			c := NewRESTClient(srv.URL, "t")
			status, err := c.GetCheckStatus(context.Background(), "https://github.com/o/r/pull/5")
			if err != nil {
				t.Fatalf("GetCheckStatus() error = %v", err)
			}
			if status.State != tt.wantState {
				t.Errorf("state = %q, want %q", status.State, tt.wantState)
			}
			if len(status.Failures) != tt.failures {
				t.Errorf("got %d failures, want %d", len(status.Failures), tt.failures)
			}
		})
	}
}

func TestCloseIssuePermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "t")
	err := c.CloseIssue(context.Background(), "o", "r", 5)
	if !errors.Is(err, types.ErrPermissionDenied) {
		t.Errorf("error = %v, want ErrPermissionDenied", err)
	}
}

func TestGetRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octocat/hello" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"default_branch": "main", "html_url": "https://github.com/octocat/hello"}`))
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "t")
	info, err := c.GetRepository(context.Background(), "https://github.com/octocat/hello")
	if err != nil {
		t.Fatalf("GetRepository() error = %v", err)
	}
	if info.DefaultBranch != "main" || info.Owner != "octocat" || info.Name != "hello" {
		t.Errorf("unexpected info: %+v", info)
	}
}
