package escalate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier posts escalations as JSON to an HTTP endpoint, for wiring
// into chat or paging integrations.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for the given endpoint. A
// non-positive timeout falls back to the default of 10 seconds.
func NewWebhookNotifier(url string, timeout time.Duration) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier requires a URL")
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Notify posts the escalation. Any 2xx response counts as delivered.
func (w *WebhookNotifier) Notify(ctx context.Context, esc Escalation) error {
	body, err := json.Marshal(esc)
	if err != nil {
		return fmt.Errorf("marshal escalation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Name identifies this notifier in log output.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}
