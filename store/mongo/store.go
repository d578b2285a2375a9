// Package mongo implements settings.Store on MongoDB.
//
// The singleton configuration record is a single document with a fixed _id,
// written with an upsert so concurrent initializers cannot create duplicate
// rows. Audit entries live in their own collection indexed by creation time.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/adminkit/notify/id"
	"github.com/adminkit/notify/settings"
)

// Collection names.
const (
	colSettings = "notify_settings"
	colAudit    = "notify_audit"
)

// compile-time interface check.
var _ settings.Store = (*Store)(nil)

// Store implements settings.Store using MongoDB.
type Store struct {
	client   *mongod.Client
	settings *mongod.Collection
	audit    *mongod.Collection
}

// New creates a Mongo-backed settings store on the given database.
func New(client *mongod.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		settings: db.Collection(colSettings),
		audit:    db.Collection(colAudit),
	}
}

// Migrate creates the audit creation-time index.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.audit.Indexes().CreateOne(ctx, mongod.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("notify/mongo: migrate audit index: %w", err)
	}
	return nil
}

// settingsDoc wraps the record with the fixed singleton _id.
type settingsDoc struct {
	ID     string          `bson:"_id"`
	Record settings.Record `bson:"record"`
}

// Load returns the singleton configuration record.
func (s *Store) Load(ctx context.Context) (*settings.Record, error) {
	var doc settingsDoc
	err := s.settings.FindOne(ctx, bson.M{"_id": settings.SingletonKey}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongod.ErrNoDocuments) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("notify/mongo: load settings: %w", err)
	}
	return &doc.Record, nil
}

// Upsert creates or replaces the singleton configuration record.
func (s *Store) Upsert(ctx context.Context, rec *settings.Record) error {
	doc := settingsDoc{ID: settings.SingletonKey, Record: *rec}
	_, err := s.settings.ReplaceOne(ctx,
		bson.M{"_id": settings.SingletonKey},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("notify/mongo: upsert settings: %w", err)
	}
	return nil
}

// auditDoc is the stored form of an audit entry. The entry ID becomes the
// document _id; Before/After snapshots are stored as raw JSON strings.
type auditDoc struct {
	ID            string   `bson:"_id"`
	ActorID       string   `bson:"actor_id"`
	ActorUsername string   `bson:"actor_username"`
	RequestIP     string   `bson:"request_ip"`
	UserAgent     string   `bson:"user_agent"`
	Action        string   `bson:"action"`
	ChangedKeys   []string `bson:"changed_keys"`
	Before        string   `bson:"before"`
	After         string   `bson:"after"`
	CreatedAt     int64    `bson:"created_at"` // unix nanos
}

// AppendAudit persists one audit entry.
func (s *Store) AppendAudit(ctx context.Context, e *settings.AuditEntry) error {
	doc := auditDoc{
		ID:            e.ID.String(),
		ActorID:       e.ActorID,
		ActorUsername: e.ActorUsername,
		RequestIP:     e.RequestIP,
		UserAgent:     e.UserAgent,
		Action:        e.Action,
		ChangedKeys:   e.ChangedKeys,
		Before:        string(e.Before),
		After:         string(e.After),
		CreatedAt:     e.CreatedAt.UnixNano(),
	}
	if _, err := s.audit.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("notify/mongo: append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns audit entries newest first plus the total count.
func (s *Store) ListAudit(ctx context.Context, offset, limit int) ([]*settings.AuditEntry, int, error) {
	total, err := s.audit.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("notify/mongo: count audit entries: %w", err)
	}

	cursor, err := s.audit.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("notify/mongo: list audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*settings.AuditEntry
	for cursor.Next(ctx) {
		var doc auditDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("notify/mongo: decode audit entry: %w", err)
		}
		e, err := fromAuditDoc(&doc)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("notify/mongo: list audit entries: %w", err)
	}

	return out, int(total), nil
}

func fromAuditDoc(doc *auditDoc) (*settings.AuditEntry, error) {
	entryID, err := id.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("notify/mongo: parse audit ID %q: %w", doc.ID, err)
	}
	return &settings.AuditEntry{
		ID:            entryID,
		ActorID:       doc.ActorID,
		ActorUsername: doc.ActorUsername,
		RequestIP:     doc.RequestIP,
		UserAgent:     doc.UserAgent,
		Action:        doc.Action,
		ChangedKeys:   doc.ChangedKeys,
		Before:        json.RawMessage(doc.Before),
		After:         json.RawMessage(doc.After),
		CreatedAt:     time.Unix(0, doc.CreatedAt).UTC(),
	}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
