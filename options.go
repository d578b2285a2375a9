package notify

import (
	"log/slog"

	"github.com/adminkit/notify/alert"
	"github.com/adminkit/notify/observability"
	"github.com/adminkit/notify/secrets"
	"github.com/adminkit/notify/settings"
)

// Option configures a Service instance.
type Option func(*Service) error

// WithStore sets the persistence backend for configuration and audit history.
func WithStore(s settings.Store) Option {
	return func(n *Service) error {
		n.store = s
		return nil
	}
}

// WithEncryptor sets the encryptor protecting the webhook secret at rest.
func WithEncryptor(enc secrets.Encryptor) Option {
	return func(n *Service) error {
		n.enc = enc
		return nil
	}
}

// WithLogger sets the structured logger. It also carries the system log
// channel: events routed to the system log are written through it.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Service) error {
		n.logger = logger
		return nil
	}
}

// WithAlerter sets the chat-bot alerter backing the telegram channel.
// Without one, telegram deliveries are silent skips.
func WithAlerter(a alert.Alerter) Option {
	return func(n *Service) error {
		n.alerter = a
		return nil
	}
}

// WithSource sets the source stamped into every envelope.
func WithSource(source string) Option {
	return func(n *Service) error {
		n.config.Source = source
		return nil
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(n *Service) error {
		n.metrics = m
		return nil
	}
}

// WithTracer enables OpenTelemetry tracing of delivery attempts.
func WithTracer(t *observability.Tracer) Option {
	return func(n *Service) error {
		n.tracer = t
		return nil
	}
}
