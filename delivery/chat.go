package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adminkit/notify/alert"
	"github.com/adminkit/notify/envelope"
)

// maxDataChars caps the JSON rendering of the data payload in chat alerts.
const maxDataChars = 1200

// ChatDispatcher delivers a human-readable rendering of the envelope to
// the chat-bot alerting channel.
type ChatDispatcher struct {
	alerter alert.Alerter
	logger  *slog.Logger
}

var _ Dispatcher = (*ChatDispatcher)(nil)

// NewChatDispatcher creates a chat dispatcher. A nil alerter means the
// channel is unavailable and every dispatch is a silent skip.
func NewChatDispatcher(alerter alert.Alerter, logger *slog.Logger) *ChatDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatDispatcher{alerter: alerter, logger: logger}
}

// Channel returns ChannelTelegram.
func (c *ChatDispatcher) Channel() Channel { return ChannelTelegram }

// Dispatch renders the envelope and hands it to the alerter. Alerter
// errors are transient and retried like webhook failures.
func (c *ChatDispatcher) Dispatch(ctx context.Context, env *envelope.Envelope) error {
	if c.alerter == nil || !c.alerter.Enabled() {
		c.logger.Debug("chat delivery skipped: alerter unavailable",
			"event", env.Event, "event_id", env.ID)
		return nil
	}

	if err := c.alerter.SendPlainAlert(ctx, renderAlert(env)); err != nil {
		return fmt.Errorf("delivery: send alert: %w", err)
	}
	return nil
}

// renderAlert produces the fixed multi-line chat summary of an envelope.
func renderAlert(env *envelope.Envelope) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(env.Severity)), env.Event)
	fmt.Fprintf(&b, "ID: %s\n", env.ID)
	fmt.Fprintf(&b, "Time: %s\n", env.Timestamp.UTC().Format(time.RFC3339))

	if env.Actor != nil {
		if env.Actor.Role != "" {
			fmt.Fprintf(&b, "Actor: %s (%s)\n", env.Actor.Username, env.Actor.Role)
		} else {
			fmt.Fprintf(&b, "Actor: %s\n", env.Actor.Username)
		}
	}
	if env.Request != nil && env.Request.IP != "" {
		fmt.Fprintf(&b, "IP: %s\n", env.Request.IP)
	}

	fmt.Fprintf(&b, "Data: %s", truncate(renderData(env.Data), maxDataChars))

	return b.String()
}

func renderData(data any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(raw)
}

// truncate cuts s to at most max bytes on a rune boundary, so the alert
// text stays valid UTF-8 even when the cut lands inside a multibyte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
