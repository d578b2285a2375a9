package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adminkit/notify/observability"
)

// Policy is the retry policy applied to failed jobs. Attempts is the total
// attempt budget per job; Delay is the base backoff, scaled linearly by the
// attempt number.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// PolicyFunc returns the current retry policy. It is consulted per failure
// so configuration updates take effect without restarting the queue.
type PolicyFunc func() Policy

// Queue is the in-memory FIFO delivery queue with a single sequential
// drain worker.
//
// Enqueue appends to the tail and starts the drain loop if none is
// running; the loop pops from the head, dispatches, and on transient
// failure sleeps Delay*attempts before re-appending the job at the tail,
// so later-arriving fresh jobs may overtake a job awaiting retry. The loop
// exits when the queue is empty and restarts on the next Enqueue. Jobs are
// never persisted: an unclean shutdown drops whatever had not completed.
type Queue struct {
	dispatchers map[Channel]Dispatcher
	policy      PolicyFunc
	logger      *slog.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	jobs     []*Job
	draining bool
	closed   bool

	wg sync.WaitGroup
}

// NewQueue creates a delivery queue over the given dispatchers.
// Metrics and tracer may be nil.
func NewQueue(dispatchers []Dispatcher, policy PolicyFunc, logger *slog.Logger, metrics *observability.Metrics, tracer *observability.Tracer) *Queue {
	if logger == nil {
		logger = slog.Default()
	}

	byChannel := make(map[Channel]Dispatcher, len(dispatchers))
	for _, d := range dispatchers {
		byChannel[d.Channel()] = d
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		dispatchers: byChannel,
		policy:      policy,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Enqueue appends a job at the tail and ensures a drain loop is running.
// It never blocks on delivery.
func (q *Queue) Enqueue(job *Job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Debug("job dropped: queue closed",
			"job_id", job.ID, "channel", job.Channel, "event", job.Envelope.Event)
		return
	}

	q.jobs = append(q.jobs, job)
	if q.metrics != nil {
		q.metrics.QueueDepth.Inc()
	}

	start := !q.draining
	if start {
		q.draining = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// Len returns the number of jobs waiting in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Idle reports whether no drain loop is currently running.
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.draining
}

// Close stops the queue: the backoff sleep and in-flight dispatch context
// are cancelled, the drain loop exits, and undelivered jobs are abandoned.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// drain is the single sequential worker loop.
func (q *Queue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if len(q.jobs) == 0 || q.ctx.Err() != nil {
			q.draining = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		if q.metrics != nil {
			q.metrics.QueueDepth.Dec()
		}

		q.process(job)
	}
}

// process performs one delivery attempt and decides the job's fate.
func (q *Queue) process(job *Job) {
	d, ok := q.dispatchers[job.Channel]
	if !ok {
		q.logger.Error("job dropped: no dispatcher for channel",
			"job_id", job.ID, "channel", job.Channel, "event", job.Envelope.Event)
		return
	}

	ctx := q.ctx
	var span trace.Span
	if q.tracer != nil {
		ctx, span = q.tracer.StartDispatchSpan(ctx, job.ID.String(), job.Envelope.ID.String(), string(job.Channel))
	}

	start := time.Now()
	err := d.Dispatch(ctx, job.Envelope)
	elapsed := time.Since(start)

	if span != nil {
		q.tracer.EndDispatchSpan(span, job.Attempts+1, err)
	}

	if err == nil {
		if q.metrics != nil {
			q.metrics.RecordDelivery(string(job.Channel), "delivered", elapsed.Seconds())
		}
		q.logger.Debug("delivered",
			"job_id", job.ID, "channel", job.Channel, "event", job.Envelope.Event,
			"attempt", job.Attempts+1, "elapsed_ms", elapsed.Milliseconds())
		return
	}

	if IsPermanent(err) {
		if q.metrics != nil {
			q.metrics.RecordDelivery(string(job.Channel), "skipped", elapsed.Seconds())
		}
		q.logger.Warn("delivery skipped: permanent condition",
			"job_id", job.ID, "channel", job.Channel, "event", job.Envelope.Event, "error", err)
		return
	}

	job.Attempts++
	pol := q.policy()

	if job.Attempts >= pol.Attempts {
		if q.metrics != nil {
			q.metrics.RecordDelivery(string(job.Channel), "failed", elapsed.Seconds())
		}
		q.logger.Error("delivery failed permanently",
			"job_id", job.ID, "channel", job.Channel, "event", job.Envelope.Event,
			"attempts", job.Attempts, "error", err)
		return
	}

	if q.metrics != nil {
		q.metrics.RecordDelivery(string(job.Channel), "retried", elapsed.Seconds())
	}
	q.logger.Debug("delivery failed; retry scheduled",
		"job_id", job.ID, "channel", job.Channel, "event", job.Envelope.Event,
		"attempt", job.Attempts, "error", err)

	// Linear backoff inside the worker: dispatch stays strictly sequential.
	backoff := pol.Delay * time.Duration(job.Attempts)
	select {
	case <-q.ctx.Done():
		return
	case <-time.After(backoff):
	}

	q.mu.Lock()
	if !q.closed {
		q.jobs = append(q.jobs, job)
		if q.metrics != nil {
			q.metrics.QueueDepth.Inc()
		}
	}
	q.mu.Unlock()
}
