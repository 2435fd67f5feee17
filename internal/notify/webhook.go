// Package notify - Webhook HTTP notifications
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WebhookNotifier sends notifications via HTTP webhooks
type WebhookNotifier struct {
	config Config
	client *http.Client
}

// NewWebhookNotifier creates a new Webhook notifier
func NewWebhookNotifier(config Config) *WebhookNotifier {
	return &WebhookNotifier{
		config: config,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the notifier name
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether webhook notifications are enabled
func (w *WebhookNotifier) IsEnabled() bool {
	return w.config.WebhookEnabled && w.config.WebhookURL != ""
}

// WebhookPayload is the JSON payload sent to webhooks
type WebhookPayload struct {
	Version  string            `json:"version"`
	Event    *Event            `json:"event"`
	Subject  string            `json:"subject"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Send sends a webhook notification
func (w *WebhookNotifier) Send(ctx context.Context, event *Event) error {
	if !w.IsEnabled() {
		return nil
	}

	payload := WebhookPayload{
		Version: "1.0",
		Event:   event,
		Subject: FormatEventSubject(event),
		Body:    FormatEventBody(event),
		Metadata: map[string]string{
			"source": "dbdump",
		},
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	retries := w.config.Retries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.config.RetryDelay), uint64(retries)),
		ctx)

	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		return w.doRequest(ctx, jsonBody)
	}, policy)
	if err != nil {
		return fmt.Errorf("webhook: failed after %d attempts: %w", attempts, err)
	}
	return nil
}

// doRequest performs the HTTP request
func (w *WebhookNotifier) doRequest(ctx context.Context, body []byte) error {
	method := w.config.WebhookMethod
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, w.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dbdump-notifier/1.0")
	for k, v := range w.config.WebhookHeaders {
		req.Header.Set(k, v)
	}
	if w.config.WebhookSecret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+w.signPayload(body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
		// client errors will not improve on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	return nil
}

// signPayload creates an HMAC-SHA256 signature
func (w *WebhookNotifier) signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(w.config.WebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
