package delivery

import (
	"context"
	"errors"

	"github.com/adminkit/notify/envelope"
)

// ErrSigningUnavailable marks a webhook delivery that cannot be signed
// because no secret is configured. It is a permanent misconfiguration,
// never retried.
var ErrSigningUnavailable = errors.New("delivery: webhook secret not configured")

// Dispatcher performs delivery of an envelope over one channel.
//
// A nil return means the job is done, either delivered or intentionally
// skipped (channel disabled). A plain error is transient and retried per
// policy; an error wrapped with Permanent is dropped immediately.
type Dispatcher interface {
	Channel() Channel
	Dispatch(ctx context.Context, env *envelope.Envelope) error
}

// PermanentError marks a delivery failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as non-retryable. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
