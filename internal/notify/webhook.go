package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/worthlabs/worthhub/internal/crypto"
)

// WebhookSender delivers notifications to a generic HTTP webhook. When a
// secret is configured, each delivery carries HMAC signature headers so the
// receiver can verify the origin.
type WebhookSender struct {
	url    string
	auth   *crypto.WebhookAuth
	client *http.Client
}

// NewWebhookSender creates a WebhookSender for the given URL. An empty
// secret disables signing.
func NewWebhookSender(url, secret string) *WebhookSender {
	s := &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	if secret != "" {
		s.auth = &crypto.WebhookAuth{Secret: secret}
	}
	return s
}

// Send posts a JSON payload with the title and message to the webhook.
func (s *WebhookSender) Send(ctx context.Context, title, message string) error {
	body, err := json.Marshal(map[string]string{
		"title":   title,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if s.auth != nil {
		for k, v := range s.auth.Headers(body) {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (s *WebhookSender) Name() string {
	return "webhook"
}
