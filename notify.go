package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adminkit/notify/alert"
	"github.com/adminkit/notify/delivery"
	"github.com/adminkit/notify/envelope"
	"github.com/adminkit/notify/observability"
	"github.com/adminkit/notify/route"
	"github.com/adminkit/notify/secrets"
	"github.com/adminkit/notify/settings"
)

// Service is the root event notification service. It builds envelopes,
// resolves each event against the route matrix, writes the system log
// synchronously, and queues webhook and telegram deliveries.
type Service struct {
	config  Config
	store   settings.Store
	enc     secrets.Encryptor
	alerter alert.Alerter
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	settings    *settings.Service
	queue       *delivery.Queue
	dispatchers []delivery.Dispatcher
}

// New creates a Service with the given options. A store and an encryptor
// are required; everything else has a working default.
func New(opts ...Option) (*Service, error) {
	n := &Service{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	if n.store == nil {
		return nil, ErrNoStore
	}
	if n.enc == nil {
		return nil, ErrNoEncryptor
	}
	n.wireServices()
	return n, nil
}

// wireServices initializes the internal services after options have been applied.
func (n *Service) wireServices() {
	n.settings = settings.NewService(n.store, n.enc, n.logger)

	webhook := delivery.NewWebhookDispatcher(n.settings.WebhookTarget, n.logger)
	chat := delivery.NewChatDispatcher(n.alerter, n.logger)

	n.dispatchers = []delivery.Dispatcher{webhook, chat}

	n.queue = delivery.NewQueue(
		n.dispatchers,
		func() delivery.Policy {
			pol := n.settings.Policy()
			return delivery.Policy{Attempts: pol.Attempts, Delay: pol.Delay}
		},
		n.logger,
		n.metrics,
		n.tracer,
	)
}

// Initialize loads or creates the persisted configuration. It is idempotent
// and never fails: a storage outage falls back to in-memory defaults.
func (n *Service) Initialize(ctx context.Context) error {
	return n.settings.Initialize(ctx)
}

// Settings exposes the runtime configuration service.
func (n *Service) Settings() *settings.Service {
	return n.settings
}

// Close stops the delivery queue and releases the store. Undelivered
// queued jobs are abandoned.
func (n *Service) Close() error {
	n.queue.Close()
	return n.store.Close()
}

// EmitOption attaches optional context to one emitted event.
type EmitOption func(*envelope.Options)

// WithSeverity sets the event severity. The default is info.
func WithSeverity(sev envelope.Severity) EmitOption {
	return func(o *envelope.Options) { o.Severity = sev }
}

// WithActor attributes the event to an authenticated principal.
func WithActor(actor envelope.Actor) EmitOption {
	return func(o *envelope.Options) { o.Actor = &actor }
}

// WithRequest attaches the originating request context to the event.
func WithRequest(req envelope.Request) EmitOption {
	return func(o *envelope.Options) { o.Request = &req }
}

// Emit records one occurrence of an event and fans it out per the route
// matrix: the system log is written before Emit returns, webhook and
// telegram deliveries are queued. Emit never blocks on delivery and never
// fails; an event that matches no channel is simply dropped. The returned
// ID identifies the envelope across all channels.
func (n *Service) Emit(ctx context.Context, event string, data any, opts ...EmitOption) uuid.UUID {
	eo := envelope.Options{Source: n.config.Source}
	for _, opt := range opts {
		opt(&eo)
	}

	env := envelope.Build(event, data, eo)
	if n.metrics != nil {
		n.metrics.EventsEmittedTotal.Inc()
	}

	rule := route.Resolve(event, n.settings.Routes())

	if rule.SystemLog {
		n.logSystem(ctx, env)
	}
	if rule.Webhook {
		n.queue.Enqueue(delivery.NewJob(delivery.ChannelWebhook, env))
	}
	if rule.Telegram {
		n.queue.Enqueue(delivery.NewJob(delivery.ChannelTelegram, env))
	}

	return env.ID
}

// logSystem writes the envelope to the system log channel at a level
// derived from its severity.
func (n *Service) logSystem(ctx context.Context, env *envelope.Envelope) {
	attrs := []any{
		"event_id", env.ID,
		"scope", env.Scope,
		"severity", env.Severity,
		"data", env.Data,
	}
	if env.Actor != nil {
		attrs = append(attrs, "actor_id", env.Actor.ID, "actor", env.Actor.Username)
	}
	if env.Request != nil {
		attrs = append(attrs, "ip", env.Request.IP)
	}

	switch env.Severity {
	case envelope.SeverityWarning:
		n.logger.WarnContext(ctx, env.Event, attrs...)
	case envelope.SeverityError, envelope.SeverityCritical:
		n.logger.ErrorContext(ctx, env.Event, attrs...)
	default:
		n.logger.InfoContext(ctx, env.Event, attrs...)
	}
}

// ChannelAll names the test-dispatch mode that exercises every registered
// dispatcher in one call.
const ChannelAll = "all"

// TestInput describes one test delivery request.
type TestInput struct {
	// Channel is the delivery channel to exercise: "webhook" or "telegram".
	// Empty (or "all") exercises every registered dispatcher.
	Channel string

	// Event is the event name; empty defaults to "system.test".
	Event string

	// Data is the test payload; nil becomes an empty object.
	Data any

	Actor   *envelope.Actor
	Request *envelope.Request
}

// TestResult reports a completed test delivery.
type TestResult struct {
	EventID uuid.UUID `json:"eventId"`
	Event   string    `json:"event"`
	Channel string    `json:"channel"`
}

// DispatchTest builds a real envelope and delivers it synchronously over
// one channel, or over every registered dispatcher when the channel is
// empty or "all". The queue and the route matrix are bypassed, and
// dispatcher errors come back to the caller, making this the diagnostic
// path for verifying channel configuration end to end.
func (n *Service) DispatchTest(ctx context.Context, in TestInput) (TestResult, error) {
	targets, channel, err := n.testTargets(in.Channel)
	if err != nil {
		return TestResult{}, err
	}

	event := in.Event
	if event == "" {
		event = "system.test"
	}

	env := envelope.Build(event, in.Data, envelope.Options{
		Source:  n.config.Source,
		Actor:   in.Actor,
		Request: in.Request,
	})

	var errs []error
	for _, d := range targets {
		if err := d.Dispatch(ctx, env); err != nil {
			errs = append(errs, fmt.Errorf("notify: test dispatch %s: %w", d.Channel(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return TestResult{}, err
	}

	return TestResult{EventID: env.ID, Event: event, Channel: channel}, nil
}

// testTargets resolves a test-input channel name to the dispatchers it
// exercises, in registration order.
func (n *Service) testTargets(channel string) ([]delivery.Dispatcher, string, error) {
	if channel == "" || channel == ChannelAll {
		return n.dispatchers, ChannelAll, nil
	}
	for _, d := range n.dispatchers {
		if d.Channel() == delivery.Channel(channel) {
			return []delivery.Dispatcher{d}, channel, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
}
