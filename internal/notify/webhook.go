// Package notify delivers generated drafts to an incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 30 * time.Second

// Notifier posts draft text to a webhook endpoint as a {"text": ...} JSON
// payload, the format Slack-compatible incoming webhooks accept.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a Notifier for the given webhook URL. An empty URL
// produces a Notifier whose Send reports delivery as disabled.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// Send posts the draft text to the webhook. It returns an error if no
// webhook is configured, the request fails, or the endpoint responds with a
// non-2xx status.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Enabled() {
		return fmt.Errorf("no webhook URL configured")
	}

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, body)
	}

	return nil
}
