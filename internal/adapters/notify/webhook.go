package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrWebhook wraps delivery failures.
var ErrWebhook = errors.New("webhook delivery failed")

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier posts notices as {"text": ...} JSON, the shape Slack and
// most chat incoming-webhooks accept.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for url. A nil client gets a default with a timeout.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookNotifier{url: url, client: client}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Notify implements Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{Text: subject + "\n" + body})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWebhook, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWebhook, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWebhook, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", ErrWebhook, resp.StatusCode)
	}
	return nil
}
