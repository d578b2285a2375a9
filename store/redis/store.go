// Package redis implements settings.Store on Redis.
//
// The singleton configuration record lives as a JSON value under a fixed
// key; audit entries are JSON values indexed by a sorted set scored on
// their creation time, so newest-first pagination is a reverse range.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adminkit/notify/settings"
)

// Key layout.
const (
	keySettings = "notify:settings"
	prefixAudit = "notify:audit:"
	zAudit      = "notify:z:audit"
)

// compile-time interface check.
var _ settings.Store = (*Store)(nil)

// Store implements settings.Store using Redis.
type Store struct {
	rdb goredis.UniversalClient
}

// New creates a Redis-backed settings store.
func New(client goredis.UniversalClient) *Store {
	return &Store{rdb: client}
}

// Load returns the singleton configuration record.
func (s *Store) Load(ctx context.Context) (*settings.Record, error) {
	raw, err := s.rdb.Get(ctx, keySettings).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("notify/redis: load settings: %w", err)
	}

	var rec settings.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("notify/redis: decode settings: %w", err)
	}
	return &rec, nil
}

// Upsert replaces the singleton configuration record.
func (s *Store) Upsert(ctx context.Context, rec *settings.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("notify/redis: encode settings: %w", err)
	}
	if err := s.rdb.Set(ctx, keySettings, raw, 0).Err(); err != nil {
		return fmt.Errorf("notify/redis: upsert settings: %w", err)
	}
	return nil
}

// AppendAudit persists one audit entry and indexes it by creation time.
func (s *Store) AppendAudit(ctx context.Context, e *settings.AuditEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notify/redis: encode audit entry: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, prefixAudit+e.ID.String(), raw, 0)
	pipe.ZAdd(ctx, zAudit, goredis.Z{
		Score:  float64(e.CreatedAt.UnixNano()) / 1e9,
		Member: e.ID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify/redis: append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries newest first plus the total count.
func (s *Store) ListAudit(ctx context.Context, offset, limit int) ([]*settings.AuditEntry, int, error) {
	total, err := s.rdb.ZCard(ctx, zAudit).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("notify/redis: count audit entries: %w", err)
	}

	ids, err := s.rdb.ZRevRange(ctx, zAudit, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("notify/redis: list audit entries: %w", err)
	}

	out := make([]*settings.AuditEntry, 0, len(ids))
	for _, id := range ids {
		raw, err := s.rdb.Get(ctx, prefixAudit+id).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue // index member without a record, skip
			}
			return nil, 0, fmt.Errorf("notify/redis: get audit entry %s: %w", id, err)
		}
		var e settings.AuditEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, 0, fmt.Errorf("notify/redis: decode audit entry %s: %w", id, err)
		}
		out = append(out, &e)
	}

	return out, int(total), nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
