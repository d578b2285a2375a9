package settings

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Load when no configuration record has
// been persisted yet.
var ErrNotFound = errors.New("settings: record not found")

// SingletonKey is the fixed identifier of the one configuration record per
// deployment. Backends use it as the record's primary key.
const SingletonKey = "notification-settings"

// Store is the persistence contract for the configuration record and its
// audit trail. Backends live under store/ (memory, redis, sqlite, mongo).
type Store interface {
	// Load returns the singleton configuration record, or ErrNotFound.
	Load(ctx context.Context) (*Record, error)

	// Upsert creates or replaces the singleton configuration record.
	// The upsert guards against duplicate-row races on initial boot.
	Upsert(ctx context.Context, rec *Record) error

	// AppendAudit persists one immutable audit entry.
	AppendAudit(ctx context.Context, e *AuditEntry) error

	// ListAudit returns audit entries newest first, plus the total count.
	ListAudit(ctx context.Context, offset, limit int) ([]*AuditEntry, int, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
