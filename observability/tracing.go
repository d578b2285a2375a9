package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/adminkit/notify"

// Tracer provides OpenTelemetry tracing for delivery attempts.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new notify tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartDispatchSpan starts a new span for a dispatch attempt.
func (t *Tracer) StartDispatchSpan(ctx context.Context, jobID, eventID, channel string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "notify.dispatch",
		trace.WithAttributes(
			attribute.String("notify.job_id", jobID),
			attribute.String("notify.event_id", eventID),
			attribute.String("notify.channel", channel),
		),
	)
}

// EndDispatchSpan ends a dispatch span with the attempt result.
func (t *Tracer) EndDispatchSpan(span trace.Span, attempt int, err error) {
	span.SetAttributes(attribute.Int("notify.attempt", attempt))
	if err != nil {
		span.SetAttributes(attribute.String("notify.error", err.Error()))
	}
	span.End()
}
