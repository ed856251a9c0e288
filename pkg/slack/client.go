// Package slack delivers alert messages to Slack incoming webhooks. It is
// the chat-messaging collaborator of the alerting pipeline: single structured
// alerts plus rate-limited batch delivery with per-message error accounting.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	defaultTimeout = 15 * time.Second

	sendAttempts  = 3
	sendBaseDelay = 500 * time.Millisecond
	sendMaxDelay  = 5 * time.Second

	// DefaultBatchDelay spaces out consecutive sends so a burst of alerts
	// does not trip Slack's webhook rate limits.
	DefaultBatchDelay = 1 * time.Second

	// DefaultMaxAlerts caps how many messages one batch may deliver.
	DefaultMaxAlerts = 20
)

// Message is a Slack webhook payload.
type Message struct {
	Text string `json:"text"`
}

// BatchOptions tune batch delivery.
type BatchOptions struct {
	Delay     time.Duration
	MaxAlerts int
}

// BatchResult reports what a batch send accomplished. Errors are collected,
// not raised: one failed message never blocks the rest.
type BatchResult struct {
	Sent   int
	Failed int
	Errors []error
}

// Client posts messages to Slack incoming webhooks.
type Client struct {
	httpClient *http.Client

	// retryDelay and retryMaxDelay bound the backoff between send
	// attempts. Overridable so tests do not sleep through real backoff.
	retryDelay    time.Duration
	retryMaxDelay time.Duration
}

// New creates a Slack webhook client.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		retryDelay:    sendBaseDelay,
		retryMaxDelay: sendMaxDelay,
	}
}

// SendAlert posts one message to the webhook URL, retrying transient
// failures. A non-2xx response after retries is a delivery error.
func (c *Client) SendAlert(ctx context.Context, webhookURL string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	return retry.Do(
		func() error { return c.post(ctx, webhookURL, payload) },
		retry.Context(ctx),
		retry.Attempts(sendAttempts),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(c.retryMaxDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying Slack delivery", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
}

// SendBatch delivers messages sequentially with a delay between sends,
// stopping at the alert cap. Failures are collected into the result.
func (c *Client) SendBatch(ctx context.Context, webhookURL string, msgs []Message, opts BatchOptions) BatchResult {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	maxAlerts := opts.MaxAlerts
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}
	if len(msgs) > maxAlerts {
		slog.Warn("Batch exceeds alert cap, truncating", "messages", len(msgs), "cap", maxAlerts)
		msgs = msgs[:maxAlerts]
	}

	var result BatchResult
	for i, msg := range msgs {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				result.Errors = append(result.Errors, ctx.Err())
				result.Failed += len(msgs) - i
				return result
			}
		}
		if err := c.SendAlert(ctx, webhookURL, msg); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("message %d: %w", i+1, err))
			continue
		}
		result.Sent++
	}
	return result
}

func (c *Client) post(ctx context.Context, webhookURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to webhook: %w", err)
	}
	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			slog.Warn("Failed to drain response body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
