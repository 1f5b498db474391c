package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewWebhookEmptyURL(t *testing.T) {
	if w := NewWebhook(""); w != nil {
		t.Error("empty URL should disable notifications")
	}
}

func TestNotifySlackPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad payload: %v", err)
		}
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)
	wh.Notify(context.Background(), LevelError, "Issue failed", "issue #42: boom")

	text, ok := got["text"]
	if !ok {
		t.Fatalf("expected slack-style payload, got %v", got)
	}
	if !strings.Contains(text, "Issue failed") || !strings.Contains(text, "issue #42: boom") {
		t.Errorf("unexpected text %q", text)
	}
	if !strings.Contains(text, "❌") {
		t.Errorf("error level should carry its marker, got %q", text)
	}
}

func TestNotifyDiscordPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	// the payload shape keys off the URL
	wh := NewWebhook(srv.URL + "/discord.com/api/webhooks/123/abc")
	wh.Notify(context.Background(), LevelInfo, "t", "m")

	if _, ok := got["content"]; !ok {
		t.Errorf("discord URL should use content field, got %v", got)
	}
	if _, ok := got["text"]; ok {
		t.Errorf("discord payload should not carry slack text field, got %v", got)
	}
}

func TestTestReturnsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL)
	if err := wh.Test(context.Background()); err == nil {
		t.Error("expected delivery error for HTTP 404")
	}
}
