package notify

import "errors"

// Sentinel errors returned by the notify package.
var (
	// ErrNoStore is returned by New when no persistence backend was provided.
	ErrNoStore = errors.New("notify: no store configured")

	// ErrNoEncryptor is returned by New when no secret encryptor was provided.
	ErrNoEncryptor = errors.New("notify: no encryptor configured")

	// ErrUnknownChannel is returned by DispatchTest for a channel name that
	// has no dispatcher.
	ErrUnknownChannel = errors.New("notify: unknown channel")
)
