package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/adminkit/notify/envelope"
	"github.com/adminkit/notify/settings"
	"github.com/adminkit/notify/signature"
)

// UserAgent is the fixed User-Agent for outbound webhook requests.
const UserAgent = "AdminKit-Notify/1.0"

// ProtocolVersion is the outbound webhook protocol version header value.
const ProtocolVersion = "1"

// Outbound webhook headers.
const (
	HeaderProtocol       = "X-Notify-Protocol"
	HeaderEventID        = "X-Notify-Event-ID"
	HeaderEvent          = "X-Notify-Event"
	HeaderEventTimestamp = "X-Notify-Event-Timestamp"
	HeaderSignature      = "X-Notify-Signature"
)

// TargetFunc returns the current webhook delivery target. It is consulted
// per attempt so configuration updates apply to queued jobs.
type TargetFunc func() settings.Target

// WebhookDispatcher delivers envelopes to the configured HTTP endpoint
// with an HMAC-SHA256 signature the receiver can verify.
type WebhookDispatcher struct {
	target TargetFunc
	client *http.Client
	logger *slog.Logger
}

var _ Dispatcher = (*WebhookDispatcher)(nil)

// NewWebhookDispatcher creates a webhook dispatcher. The per-attempt
// timeout comes from the target, not from the HTTP client.
func NewWebhookDispatcher(target TargetFunc, logger *slog.Logger) *WebhookDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookDispatcher{
		target: target,
		client: &http.Client{},
		logger: logger,
	}
}

// Channel returns ChannelWebhook.
func (w *WebhookDispatcher) Channel() Channel { return ChannelWebhook }

// Dispatch signs and POSTs the envelope.
//
// A disabled channel or missing URL is a silent skip (nil). A missing
// secret is a permanent misconfiguration: no request is issued and the job
// is never retried. Transport errors and non-2xx responses are transient.
func (w *WebhookDispatcher) Dispatch(ctx context.Context, env *envelope.Envelope) error {
	t := w.target()

	if !t.Enabled || t.URL == "" {
		w.logger.Debug("webhook delivery skipped",
			"event", env.Event, "event_id", env.ID, "enabled", t.Enabled)
		return nil
	}

	if t.Secret == "" {
		w.logger.Warn("webhook delivery skipped: no signing secret configured",
			"event", env.Event, "event_id", env.ID)
		return Permanent(ErrSigningUnavailable)
	}

	body, err := json.Marshal(env)
	if err != nil {
		return Permanent(fmt.Errorf("delivery: marshal envelope: %w", err))
	}

	ts := env.Timestamp.UTC().Format(time.RFC3339)
	sig := signature.Sign(t.Secret, ts, env.ID.String(), env.Event, body)

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("delivery: create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderProtocol, ProtocolVersion)
	req.Header.Set(HeaderEventID, env.ID.String())
	req.Header.Set(HeaderEvent, env.Event)
	req.Header.Set(HeaderEventTimestamp, ts)
	req.Header.Set(HeaderSignature, sig)

	resp, err := w.client.Do(req) //nolint:gosec // URL is an operator-configured webhook destination.
	if err != nil {
		return fmt.Errorf("delivery: webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery: webhook endpoint returned %d", resp.StatusCode)
	}

	return nil
}
