// Package alert defines the chat-bot alerting capability consumed by the
// chat dispatcher, plus a Telegram implementation of it.
package alert

import (
	"context"
	"errors"
)

// ErrDisabled is returned when a send is attempted on a disabled alerter.
var ErrDisabled = errors.New("alert: alerter is disabled")

// Alerter is the bot capability the chat channel delivers through.
// Implementations must be safe for concurrent use.
type Alerter interface {
	// Enabled reports whether the alerter can currently send.
	Enabled() bool

	// SendPlainAlert delivers a plain-text alert to the operator channel.
	SendPlainAlert(ctx context.Context, text string) error
}
