// Package notify delivers workflow events to a webhook. Slack and Discord
// incoming webhooks are both supported; the payload shape is chosen from the
// webhook URL. Delivery is best-effort: a failed notification is logged and
// never fails the workflow that produced it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Levels attached to notifications
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levelEmoji = map[string]string{
	LevelInfo:  "✅",
	LevelWarn:  "⚠️",
	LevelError: "❌",
}

// Webhook posts notifications to a Slack- or Discord-compatible webhook URL
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. An empty URL yields nil, which
// callers treat as notifications disabled.
func NewWebhook(url string) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts one event. Errors are logged, not returned.
func (w *Webhook) Notify(ctx context.Context, level, title, message string) {
	if err := w.send(ctx, level, title, message); err != nil {
		slog.Warn("webhook notification failed", "title", title, "error", err)
	}
}

// Test sends a test notification and returns the delivery error, for setup
// verification.
func (w *Webhook) Test(ctx context.Context) error {
	return w.send(ctx, LevelInfo, "Devin Sheriff", "Webhook configured successfully.")
}

func (w *Webhook) send(ctx context.Context, level, title, message string) error {
	emoji := levelEmoji[level]
	if emoji == "" {
		emoji = levelEmoji[LevelInfo]
	}
	text := fmt.Sprintf("%s *%s*\n%s", emoji, title, message)

	var payload any
	if strings.Contains(w.url, "discord.com/api/webhooks") {
		payload = map[string]string{"content": text}
	} else {
		payload = map[string]string{"text": text}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
