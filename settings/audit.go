package settings

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/adminkit/notify/envelope"
	"github.com/adminkit/notify/id"
)

// Audit actions.
const (
	ActionBootstrap = "bootstrap"
	ActionUpdate    = "update"
)

// AuditEntry is an immutable record of one configuration mutation,
// including a sanitized before/after diff. Entries are append-only and
// never mutated.
type AuditEntry struct {
	ID            id.ID           `json:"id" bson:"_id"`
	ActorID       string          `json:"actorId" bson:"actor_id"`
	ActorUsername string          `json:"actorUsername" bson:"actor_username"`
	RequestIP     string          `json:"requestIp" bson:"request_ip"`
	UserAgent     string          `json:"userAgent" bson:"user_agent"`
	Action        string          `json:"action" bson:"action"`
	ChangedKeys   []string        `json:"changedKeys" bson:"changed_keys"`
	Before        json.RawMessage `json:"before" bson:"before"`
	After         json.RawMessage `json:"after" bson:"after"`
	CreatedAt     time.Time       `json:"createdAt" bson:"created_at"`
}

// AuditPage is one page of audit history, newest first.
type AuditPage struct {
	Items      []*AuditEntry `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// Pagination describes the page window of an AuditPage.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Meta identifies who performed a configuration mutation.
type Meta struct {
	Actor   *envelope.Actor
	Request *envelope.Request
}

// newAuditEntry builds an entry from sanitized before/after snapshots.
// Snapshot marshal errors cannot occur for View, so they are ignored.
func newAuditEntry(action string, before, after *View, meta Meta) *AuditEntry {
	e := &AuditEntry{
		ID:          id.NewAuditID(),
		Action:      action,
		ChangedKeys: changedKeys(before, after),
		Before:      snapshot(before),
		After:       snapshot(after),
		CreatedAt:   time.Now().UTC(),
	}
	if meta.Actor != nil {
		e.ActorID = meta.Actor.ID
		e.ActorUsername = meta.Actor.Username
	}
	if meta.Request != nil {
		e.RequestIP = meta.Request.IP
		e.UserAgent = meta.Request.UserAgent
	}
	return e
}

func snapshot(v *View) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

// changedKeys returns the symmetric difference, by JSON equality, of the
// top-level keys of the two snapshots. Keys present in only one snapshot
// are included. The result is sorted for determinism.
func changedKeys(before, after *View) []string {
	b := fields(before)
	a := fields(after)

	keys := make([]string, 0, len(a))
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !bytes.Equal(compact(av), compact(bv)) {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)
	return keys
}

func fields(v *View) map[string]json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
