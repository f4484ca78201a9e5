package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/webhooks"
)

// OutboundSignatureHeader carries the timestamped HMAC over the confirmation
// body, using the same scheme the inbound endpoint verifies. Receivers with
// the shared secret can authenticate deliveries.
const OutboundSignatureHeader = "Barberworld-Signature"

const defaultWebhookTimeout = 10 * time.Second
const defaultWebhookResponseLimit int64 = 1 << 20 // 1 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookChannel POSTs order confirmations to a downstream endpoint as JSON.
// Delivery failures are returned so the outbox nacks and retries the event.
type WebhookChannel struct {
	URL           string
	SigningSecret string
	Client        HTTPDoer
	Now           func() time.Time
}

func NewWebhookChannel(url string, signingSecret string, client HTTPDoer) *WebhookChannel {
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookChannel{
		URL:           strings.TrimSpace(url),
		SigningSecret: strings.TrimSpace(signingSecret),
		Client:        client,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type confirmationPayload struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	SessionID string         `json:"session_id"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func (c *WebhookChannel) Notify(ctx context.Context, event core.OutboxEvent) error {
	if c == nil || c.Client == nil {
		return channelError(
			"notify: webhook channel requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"channel": KindWebhook},
		)
	}
	if strings.TrimSpace(c.URL) == "" {
		return channelError(
			"notify: webhook channel url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"channel": KindWebhook},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(confirmationPayload{
		ID:        event.ID,
		Kind:      event.Kind,
		SessionID: event.SessionID,
		Payload:   event.Payload,
	})
	if err != nil {
		return channelWrapError(
			err,
			goerrors.CategoryInternal,
			"notify: encode confirmation payload",
			http.StatusInternalServerError,
			map[string]any{"channel": KindWebhook, "outbox_id": event.ID},
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return channelWrapError(
			err,
			goerrors.CategoryBadInput,
			"notify: create webhook request",
			http.StatusBadRequest,
			map[string]any{"channel": KindWebhook, "url": c.URL},
		)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.SigningSecret != "" {
		now := time.Now().UTC()
		if c.Now != nil {
			now = c.Now().UTC()
		}
		req.Header.Set(OutboundSignatureHeader, webhooks.SignPayload(c.SigningSecret, now, body))
	}

	res, err := c.Client.Do(req)
	if err != nil {
		return channelWrapError(
			err,
			goerrors.CategoryExternal,
			"notify: deliver confirmation webhook",
			http.StatusBadGateway,
			map[string]any{"channel": KindWebhook, "url": c.URL, "outbox_id": event.ID},
		)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, defaultWebhookResponseLimit))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return channelError(
			fmt.Sprintf("notify: confirmation webhook returned status %d", res.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"channel":     KindWebhook,
				"url":         c.URL,
				"outbox_id":   event.ID,
				"status_code": res.StatusCode,
			},
		)
	}
	return nil
}

var _ core.Notifier = (*WebhookChannel)(nil)
