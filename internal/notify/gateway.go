// Package notify delivers alert, resolution and escalation notifications
// with out-of-band retry. Delivery is never allowed to block the decision
// loop.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// Gateway delivers a notification and returns a delivery acknowledgment id.
type Gateway interface {
	Send(ctx context.Context, n *domain.Notification) (deliveryID string, err error)
}

// LogGateway writes notifications to the log. It is the default when no
// webhook is configured.
type LogGateway struct {
	Log *slog.Logger
}

func (g *LogGateway) Send(ctx context.Context, n *domain.Notification) (string, error) {
	log := g.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("notification",
		"kind", n.Kind,
		"severity", n.Severity,
		"fingerprint", n.Fingerprint,
		"title", n.Title,
		"body", n.Body,
	)
	return uuid.New().String(), nil
}

// WebhookGateway POSTs notifications as JSON to a chat/incident webhook.
type WebhookGateway struct {
	URL    string
	Client *http.Client
}

// HTTPStatusError reports a non-2xx webhook response. 4xx statuses are
// permanent and must not be retried.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.StatusCode)
}

func (g *WebhookGateway) Send(ctx context.Context, n *domain.Notification) (string, error) {
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPStatusError{StatusCode: resp.StatusCode}
	}
	return n.ID, nil
}
