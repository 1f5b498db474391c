// Package devin talks to the remote coding-agent API. Sessions are
// asynchronous jobs: create one with a prompt, then poll its status until it
// reaches a terminal state.
package devin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devin-sheriff/sheriff/internal/types"
)

// RemoteStatus is the job state reported by the remote API
type RemoteStatus string

const (
	RemoteRunning RemoteStatus = "running"
	RemoteBlocked RemoteStatus = "blocked"
	RemoteDone    RemoteStatus = "finished"
	RemoteExpired RemoteStatus = "expired"
	RemoteFailed  RemoteStatus = "failed"
)

// IsTerminal reports whether the remote job can make no further progress
func (s RemoteStatus) IsTerminal() bool {
	switch s {
	case RemoteDone, RemoteExpired, RemoteFailed:
		return true
	}
	return false
}

// SessionInfo is a point-in-time snapshot of a remote job
type SessionInfo struct {
	RemoteID string
	Status   RemoteStatus
	Output   string
	URL      string
}

// JobClient is the remote coding-agent surface the orchestrator depends on.
// Implementations must map authentication failures to types.ErrAuth and
// unknown sessions to types.ErrNotFound.
type JobClient interface {
	// CreateSession starts a new remote job with the given prompt and
	// returns its remote ID.
	CreateSession(ctx context.Context, prompt string) (string, error)

	// GetSession fetches the current state of a remote job
	GetSession(ctx context.Context, remoteID string) (*SessionInfo, error)

	// VerifyAuth checks the API credentials without starting a job
	VerifyAuth(ctx context.Context) error
}

// transientError marks failures worth retrying: network trouble, rate
// limits, and server-side errors.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether an error from this package is retryable
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// HTTPClient implements JobClient against the Devin HTTP API
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a Devin API client
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type createSessionRequest struct {
	Prompt string `json:"prompt"`
}

type sessionResponse struct {
	SessionID        string          `json:"session_id"`
	Status           string          `json:"status_enum"`
	URL              string          `json:"url,omitempty"`
	StructuredOutput json.RawMessage `json:"structured_output,omitempty"`
	Output           string          `json:"output,omitempty"`
}

func (c *HTTPClient) CreateSession(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(createSessionRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session request: %w", err)
	}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/sessions", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("session create response missing session_id: %w", types.ErrMalformedResult)
	}
	return resp.SessionID, nil
}

func (c *HTTPClient) GetSession(ctx context.Context, remoteID string) (*SessionInfo, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodGet, "/session/"+remoteID, nil, &resp); err != nil {
		return nil, err
	}

	output := resp.Output
	if output == "" && len(resp.StructuredOutput) > 0 {
		output = string(resp.StructuredOutput)
	}
	return &SessionInfo{
		RemoteID: remoteID,
		Status:   normalizeStatus(resp.Status),
		Output:   output,
		URL:      resp.URL,
	}, nil
}

func (c *HTTPClient) VerifyAuth(ctx context.Context) error {
	// Listing sessions is the cheapest authenticated call the API offers
	return c.do(ctx, http.MethodGet, "/sessions", nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transientError{err: fmt.Errorf("devin API request failed: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("devin API rejected credentials (HTTP %d): %w", resp.StatusCode, types.ErrAuth)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("devin session not found: %w", types.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &transientError{err: fmt.Errorf("devin API returned HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("devin API returned HTTP %d: %s: %w", resp.StatusCode, string(data), types.ErrRemoteFailure)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode devin response: %w", types.ErrMalformedResult)
	}
	return nil
}

// normalizeStatus maps the API's status vocabulary onto RemoteStatus. Unknown
// values are treated as still running so the poller keeps watching until the
// deadline rather than failing the session on a vocabulary change.
func normalizeStatus(s string) RemoteStatus {
	switch RemoteStatus(s) {
	case RemoteRunning, RemoteBlocked, RemoteDone, RemoteExpired, RemoteFailed:
		return RemoteStatus(s)
	}
	switch s {
	case "working", "pending", "resumed":
		return RemoteRunning
	case "completed", "done":
		return RemoteDone
	case "error":
		return RemoteFailed
	}
	return RemoteRunning
}
