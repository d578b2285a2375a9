// Package sqlite implements settings.Store on SQLite via the pure-Go
// modernc.org/sqlite driver. The configuration record and audit entries are
// stored as JSON payloads; the audit table carries a creation-time column
// for newest-first pagination.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // database/sql driver

	"github.com/adminkit/notify/id"
	"github.com/adminkit/notify/settings"
)

const schema = `
CREATE TABLE IF NOT EXISTS notify_settings (
	id      TEXT PRIMARY KEY,
	payload TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS notify_audit (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notify_audit_created_at ON notify_audit(created_at);
`

// compile-time interface check.
var _ settings.Store = (*Store)(nil)

// Store implements settings.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("notify/sqlite: open %s: %w", path, err)
	}

	// The modernc driver serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("notify/sqlite: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Load returns the singleton configuration record.
func (s *Store) Load(ctx context.Context) (*settings.Record, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM notify_settings WHERE id = ?`, settings.SingletonKey,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("notify/sqlite: load settings: %w", err)
	}

	var rec settings.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("notify/sqlite: decode settings: %w", err)
	}
	return &rec, nil
}

// Upsert creates or replaces the singleton configuration record.
func (s *Store) Upsert(ctx context.Context, rec *settings.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("notify/sqlite: encode settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notify_settings (id, payload) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		settings.SingletonKey, payload,
	)
	if err != nil {
		return fmt.Errorf("notify/sqlite: upsert settings: %w", err)
	}
	return nil
}

// AppendAudit persists one audit entry.
func (s *Store) AppendAudit(ctx context.Context, e *settings.AuditEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notify/sqlite: encode audit entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notify_audit (id, created_at, payload) VALUES (?, ?, ?)`,
		e.ID, e.CreatedAt.UnixNano(), payload,
	)
	if err != nil {
		return fmt.Errorf("notify/sqlite: append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries newest first plus the total count.
func (s *Store) ListAudit(ctx context.Context, offset, limit int) ([]*settings.AuditEntry, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notify_audit`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("notify/sqlite: count audit entries: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload FROM notify_audit ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("notify/sqlite: list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*settings.AuditEntry
	for rows.Next() {
		var (
			entryID id.ID
			payload []byte
		)
		if err := rows.Scan(&entryID, &payload); err != nil {
			return nil, 0, fmt.Errorf("notify/sqlite: scan audit entry: %w", err)
		}
		var e settings.AuditEntry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, 0, fmt.Errorf("notify/sqlite: decode audit entry: %w", err)
		}
		// The indexed id column is authoritative over the JSON payload.
		e.ID = entryID
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("notify/sqlite: list audit entries: %w", err)
	}

	return out, total, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
