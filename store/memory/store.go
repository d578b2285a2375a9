// Package memory provides an in-memory settings.Store implementation for
// unit testing and for deployments that accept losing configuration on
// restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/adminkit/notify/settings"
)

// compile-time interface check.
var _ settings.Store = (*Store)(nil)

// Store is an in-memory implementation of settings.Store.
type Store struct {
	mu sync.RWMutex

	record *settings.Record
	audits []*settings.AuditEntry // append order, oldest first

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// Load returns a copy of the singleton record, or settings.ErrNotFound.
func (s *Store) Load(_ context.Context) (*settings.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return nil, settings.ErrNotFound
	}
	return cloneRecord(s.record)
}

// Upsert stores a copy of the singleton record.
func (s *Store) Upsert(_ context.Context, rec *settings.Record) error {
	cp, err := cloneRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = cp
	return nil
}

// AppendAudit stores one audit entry.
func (s *Store) AppendAudit(_ context.Context, e *settings.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, e)
	return nil
}

// ListAudit returns audit entries newest first.
func (s *Store) ListAudit(_ context.Context, offset, limit int) ([]*settings.AuditEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.audits)
	if offset >= total {
		return nil, total, nil
	}

	out := make([]*settings.AuditEntry, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audits[i])
	}
	return out, total, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("memory: store is closed")
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// cloneRecord deep-copies a record through its JSON form so callers can
// never alias the stored routes slice.
func cloneRecord(rec *settings.Record) (*settings.Record, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("memory: clone record: %w", err)
	}
	var cp settings.Record
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("memory: clone record: %w", err)
	}
	return &cp, nil
}
