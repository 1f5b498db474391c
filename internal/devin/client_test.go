package devin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devin-sheriff/sheriff/internal/types"
)

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"session_id": "devin-abc123", "status_enum": "running"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	id, err := c.CreateSession(context.Background(), "do the thing")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if id != "devin-abc123" {
		t.Errorf("session ID = %q", id)
	}
}

func TestGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/devin-abc123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"session_id": "devin-abc123", "status_enum": "finished", "structured_output": {"pr_url": "https://github.com/a/b/pull/1"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	info, err := c.GetSession(context.Background(), "devin-abc123")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if info.Status != RemoteDone {
		t.Errorf("status = %q, want finished", info.Status)
	}
	if !info.Status.IsTerminal() {
		t.Error("finished should be terminal")
	}
	if info.Output == "" {
		t.Error("expected structured output to be captured")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantErr   error
		transient bool
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrAuth, false},
		{"forbidden", http.StatusForbidden, types.ErrAuth, false},
		{"not found", http.StatusNotFound, types.ErrNotFound, false},
		{"rate limited", http.StatusTooManyRequests, nil, true},
		{"server error", http.StatusInternalServerError, nil, true},
		{"bad request", http.StatusBadRequest, types.ErrRemoteFailure, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, "test-key")
			_, err := c.GetSession(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if got := IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.transient)
			}
		})
	}
}

func TestGetSessionContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewHTTPClient(srv.URL, "test-key")
	_, err := c.GetSession(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if IsTransient(err) {
		t.Error("cancellation must not be treated as transient")
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]RemoteStatus{
		"running":       RemoteRunning,
		"working":       RemoteRunning,
		"blocked":       RemoteBlocked,
		"finished":      RemoteDone,
		"completed":     RemoteDone,
		"expired":       RemoteExpired,
		"error":         RemoteFailed,
		"something-new": RemoteRunning,
		"":              RemoteRunning,
	}
	for in, want := range tests {
		if got := normalizeStatus(in); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
