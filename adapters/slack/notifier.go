// Package slack posts sync summaries to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dashsync/internal/errors"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	colorError   = "#ff0000"
	colorSuccess = "#36a64f"
)

// Notifier implements ports.Notifier. A notifier without a webhook URL
// does nothing.
type Notifier struct {
	webhookURL string
	client     *retryablehttp.Client
	now        func() time.Time
	logger     *zap.Logger
}

// NewNotifier creates a notifier posting to webhookURL with a per-attempt
// timeout.
func NewNotifier(webhookURL string, timeout time.Duration, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	return &Notifier{
		webhookURL: webhookURL,
		client:     client,
		now:        time.Now,
		logger:     logger,
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

type textObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type block struct {
	Type     string       `json:"type"`
	Text     *textObject  `json:"text,omitempty"`
	Elements []textObject `json:"elements,omitempty"`
}

type attachment struct {
	Color  string  `json:"color"`
	Blocks []block `json:"blocks"`
}

type payload struct {
	Attachments []attachment `json:"attachments"`
}

func (n *Notifier) buildPayload(message string, isError bool) payload {
	color, icon := colorSuccess, ":white_check_mark:"
	if isError {
		color, icon = colorError, ":x:"
	}
	timestamp := n.now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"

	return payload{Attachments: []attachment{{
		Color: color,
		Blocks: []block{
			{
				Type: "section",
				Text: &textObject{Type: "mrkdwn", Text: fmt.Sprintf("%s *Dashboard Sync*\n%s", icon, message)},
			},
			{
				Type:     "context",
				Elements: []textObject{{Type: "mrkdwn", Text: fmt.Sprintf("_Timestamp: %s_", timestamp)}},
			},
		},
	}}}
}

// Notify posts message to the webhook.
func (n *Notifier) Notify(ctx context.Context, message string, isError bool) error {
	if !n.Enabled() {
		n.logger.Debug("slack webhook not configured, skipping notification")
		return nil
	}

	body, err := json.Marshal(n.buildPayload(message, isError))
	if err != nil {
		return errors.Wrap(err, "failed to encode slack payload")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.ExternalServiceError("slack", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.ExternalServiceError("slack", fmt.Errorf("webhook returned %s", resp.Status))
	}
	n.logger.Info("slack notification sent", zap.Bool("is_error", isError))
	return nil
}
