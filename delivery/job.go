// Package delivery owns the in-memory delivery queue and the per-channel
// dispatchers that drain it.
package delivery

import (
	"github.com/adminkit/notify/envelope"
	"github.com/adminkit/notify/id"
)

// Channel identifies one asynchronous delivery mechanism.
type Channel string

// Queue-backed delivery channels. The system log is not a queue channel:
// it is written synchronously at emit time.
const (
	ChannelWebhook  Channel = "webhook"
	ChannelTelegram Channel = "telegram"
)

// Job is one pending delivery of an envelope over one channel. A job is
// owned exclusively by the queue for its lifetime and is discarded on
// terminal success or exhausted retries; jobs are never persisted.
type Job struct {
	// ID is the unique TypeID for this job, used in failure logs.
	ID id.ID

	// Channel selects the dispatcher that will carry the envelope.
	Channel Channel

	// Envelope is the immutable event being delivered.
	Envelope *envelope.Envelope

	// Attempts counts delivery attempts made so far.
	Attempts int
}

// NewJob creates a pending job for one channel.
func NewJob(channel Channel, env *envelope.Envelope) *Job {
	return &Job{
		ID:       id.NewJobID(),
		Channel:  channel,
		Envelope: env,
	}
}
