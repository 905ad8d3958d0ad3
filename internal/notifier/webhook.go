package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"lease-notify/internal/models"
)

const defaultWebhookTimeout = 30 * time.Second

// WebhookSender POSTs the notification as JSON to a single endpoint.
// Thread-safe; the underlying client pools connections.
type WebhookSender struct {
	url         string
	bearerToken string
	client      *http.Client
	timeout     time.Duration
}

// webhookPayload is the wire shape delivered to the endpoint
type webhookPayload struct {
	Subject      string               `json:"subject"`
	Body         string               `json:"body"`
	Notification *models.Notification `json:"notification"`
}

// NewWebhookSender creates a webhook sender; token may be empty
func NewWebhookSender(url, bearerToken string, timeout time.Duration) (*WebhookSender, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &WebhookSender{
		url:         url,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: timeout},
		timeout:     timeout,
	}, nil
}

// Send delivers one notification, bounded by the sender's timeout
func (s *WebhookSender) Send(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(webhookPayload{
		Subject:      Subject(n),
		Body:         Body(n),
		Notification: n,
	})
	if err != nil {
		return &SendError{Category: CategorySendFailure, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return &SendError{Category: CategorySendFailure, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.bearerToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &SendError{Category: CategoryTimeout, Err: err}
		}
		return &SendError{Category: CategoryUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SendError{
			Category: CategoryRejected,
			Err:      fmt.Errorf("webhook returned status %d", resp.StatusCode),
		}
	}

	return nil
}
