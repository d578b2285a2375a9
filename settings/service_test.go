package settings_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/adminkit/notify/route"
	"github.com/adminkit/notify/secrets"
	"github.com/adminkit/notify/settings"
	"github.com/adminkit/notify/store/memory"
)

func ptr[T any](v T) *T { return &v }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEncryptor(t *testing.T) *secrets.AESGCM {
	t.Helper()
	enc, err := secrets.NewAESGCM(bytes.Repeat([]byte("k"), 32))
	if err != nil {
		t.Fatalf("NewAESGCM: %v", err)
	}
	return enc
}

func newInitialized(t *testing.T, store settings.Store) *settings.Service {
	t.Helper()
	svc := settings.NewService(store, newEncryptor(t), quietLogger())
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return svc
}

func TestInitializeBootstrapsDefaults(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newInitialized(t, store)

	view := svc.Get()
	if view.RetryAttempts != 3 || view.TimeoutMs != 10000 || view.RetryDelayMs != 1000 {
		t.Errorf("default policy: got %d/%d/%d", view.RetryAttempts, view.TimeoutMs, view.RetryDelayMs)
	}
	if rule, ok := view.Routes.Lookup("security.*"); !ok || !rule.Webhook || !rule.Telegram || !rule.SystemLog {
		t.Errorf("security.* default route: got %+v (ok=%v)", rule, ok)
	}
	if !view.Routes.Default.SystemLog || view.Routes.Default.Webhook {
		t.Errorf("default rule: got %+v", view.Routes.Default)
	}

	if _, err := store.Load(ctx); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}

	page, err := svc.AuditLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("AuditLogs: %v", err)
	}
	if page.Pagination.Total != 1 {
		t.Fatalf("audit entries: got %d, want 1 bootstrap entry", page.Pagination.Total)
	}
	entry := page.Items[0]
	if entry.Action != settings.ActionBootstrap {
		t.Errorf("action: got %q", entry.Action)
	}
	if string(entry.Before) != "null" {
		t.Errorf("bootstrap before: got %s, want null", entry.Before)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newInitialized(t, store)

	for range 3 {
		if err := svc.Initialize(ctx); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
	}

	page, err := svc.AuditLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("AuditLogs: %v", err)
	}
	if page.Pagination.Total != 1 {
		t.Fatalf("audit entries after repeat Initialize: got %d, want 1", page.Pagination.Total)
	}
}

func TestInitializeAdoptsExistingRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	enc := newEncryptor(t)

	cipher, err := enc.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if err := store.Upsert(ctx, &settings.Record{
		WebhookEnabled:  true,
		WebhookURL:      "https://example.com/hook",
		WebhookSecret:   cipher,
		SecretEncrypted: true,
		TimeoutMs:       5000,
		RetryAttempts:   2,
		RetryDelayMs:    500,
		Routes:          route.Matrix{Default: route.Rule{SystemLog: true}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	svc := settings.NewService(store, enc, quietLogger())
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	target := svc.WebhookTarget()
	if target.Secret != "hunter2" {
		t.Errorf("decrypted secret: got %q", target.Secret)
	}
	if !target.Enabled || target.URL != "https://example.com/hook" {
		t.Errorf("target: got %+v", target)
	}
	if view := svc.Get(); view.TimeoutMs != 5000 || view.RetryAttempts != 2 {
		t.Errorf("adopted policy: got %d/%d", view.TimeoutMs, view.RetryAttempts)
	}

	page, err := svc.AuditLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("AuditLogs: %v", err)
	}
	if page.Pagination.Total != 0 {
		t.Errorf("adopting an existing record must not audit, got %d entries", page.Pagination.Total)
	}
}

func TestInitializeMigratesPlaintextSecret(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	if err := store.Upsert(ctx, &settings.Record{
		WebhookSecret:   "legacy-plaintext",
		SecretEncrypted: false,
		TimeoutMs:       10000,
		RetryAttempts:   3,
		RetryDelayMs:    1000,
		Routes:          route.Matrix{Default: route.Rule{SystemLog: true}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	svc := newInitialized(t, store)

	if got := svc.WebhookTarget().Secret; got != "legacy-plaintext" {
		t.Errorf("in-memory secret: got %q", got)
	}

	rec, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !rec.SecretEncrypted || !secrets.IsEncrypted(rec.WebhookSecret) {
		t.Errorf("secret not migrated: encrypted=%v value=%q", rec.SecretEncrypted, rec.WebhookSecret)
	}
}

// downStore fails every operation, simulating an unreachable backend.
type downStore struct{}

var errDown = errors.New("connection refused")

func (downStore) Load(context.Context) (*settings.Record, error) { return nil, errDown }
func (downStore) Upsert(context.Context, *settings.Record) error { return errDown }
func (downStore) AppendAudit(context.Context, *settings.AuditEntry) error { return errDown }
func (downStore) ListAudit(context.Context, int, int) ([]*settings.AuditEntry, int, error) {
	return nil, 0, errDown
}
func (downStore) Ping(context.Context) error { return errDown }
func (downStore) Close() error               { return nil }

func TestInitializeStoreDownFallsBackToDefaults(t *testing.T) {
	svc := settings.NewService(downStore{}, newEncryptor(t), quietLogger())

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize must not fail on storage outage, got %v", err)
	}
	if view := svc.Get(); view.RetryAttempts != 3 {
		t.Errorf("fallback defaults: got %+v", view)
	}
}

func TestUpdatePartialLeavesOtherFieldsAlone(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newInitialized(t, store)

	view, err := svc.Update(ctx, settings.Overrides{
		WebhookURL: ptr("https://hooks.example.com/notify"),
	}, settings.Meta{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if view.WebhookURL != "https://hooks.example.com/notify" {
		t.Errorf("url: got %q", view.WebhookURL)
	}
	if view.RetryAttempts != 3 || view.TimeoutMs != 10000 || view.WebhookEnabled {
		t.Errorf("untouched fields changed: %+v", view)
	}

	rec, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.WebhookURL != "https://hooks.example.com/notify" {
		t.Errorf("persisted url: got %q", rec.WebhookURL)
	}
}

func TestUpdateDropsOutOfRangeValues(t *testing.T) {
	svc := newInitialized(t, memory.New())

	view, err := svc.Update(context.Background(), settings.Overrides{
		TimeoutMs:     ptr(50),
		RetryAttempts: ptr(0),
		RetryDelayMs:  ptr(10),
	}, settings.Meta{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if view.TimeoutMs != 10000 || view.RetryAttempts != 3 || view.RetryDelayMs != 1000 {
		t.Errorf("out-of-range values applied: %d/%d/%d",
			view.TimeoutMs, view.RetryAttempts, view.RetryDelayMs)
	}
}

func TestUpdateSecretNeverLeavesSanitizedViews(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newInitialized(t, store)

	view, err := svc.Update(ctx, settings.Overrides{
		WebhookSecret: ptr("nsec_supersecret"),
	}, settings.Meta{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if !view.WebhookSecretConfigured {
		t.Error("secretConfigured should be true")
	}
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	if strings.Contains(string(raw), "supersecret") {
		t.Errorf("view leaks the secret: %s", raw)
	}

	rec, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !rec.SecretEncrypted || strings.Contains(rec.WebhookSecret, "supersecret") {
		t.Errorf("secret stored unprotected: %q", rec.WebhookSecret)
	}
	if got := svc.WebhookTarget().Secret; got != "nsec_supersecret" {
		t.Errorf("dispatcher secret: got %q", got)
	}
}

func TestUpdateRouteOverrideCompletesFromDefault(t *testing.T) {
	svc := newInitialized(t, memory.New())

	view, err := svc.Update(context.Background(), settings.Overrides{
		Routes: map[string]*settings.RuleOverride{
			"billing.*": {Webhook: ptr(true)},
		},
	}, settings.Meta{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	rule, ok := view.Routes.Lookup("billing.*")
	if !ok {
		t.Fatal("billing.* route missing")
	}
	// Absent flags inherit from the default rule, which logs only.
	want := route.Rule{Webhook: true, Telegram: false, SystemLog: true}
	if rule != want {
		t.Errorf("merged rule: got %+v, want %+v", rule, want)
	}
}

func TestUpdateAuditsChangedKeys(t *testing.T) {
	ctx := context.Background()
	svc := newInitialized(t, memory.New())

	if _, err := svc.Update(ctx, settings.Overrides{
		WebhookURL: ptr("https://example.com/a"),
	}, settings.Meta{}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	page, err := svc.AuditLogs(ctx, 1, 10)
	if err != nil {
		t.Fatalf("AuditLogs: %v", err)
	}
	entry := page.Items[0] // newest first
	if entry.Action != settings.ActionUpdate {
		t.Fatalf("action: got %q", entry.Action)
	}

	keys := strings.Join(entry.ChangedKeys, ",")
	if !strings.Contains(keys, "webhookUrl") {
		t.Errorf("changedKeys missing webhookUrl: %v", entry.ChangedKeys)
	}
	if strings.Contains(keys, "retryAttempts") {
		t.Errorf("changedKeys includes untouched field: %v", entry.ChangedKeys)
	}
}

// flakyStore delegates to a real backend but can be told to fail writes.
type flakyStore struct {
	settings.Store
	failUpsert bool
}

func (f *flakyStore) Upsert(ctx context.Context, rec *settings.Record) error {
	if f.failUpsert {
		return errors.New("disk full")
	}
	return f.Store.Upsert(ctx, rec)
}

func TestUpdatePersistFailureLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.New()}
	svc := newInitialized(t, store)

	store.failUpsert = true
	_, err := svc.Update(ctx, settings.Overrides{WebhookURL: ptr("https://example.com/new")}, settings.Meta{})
	if err == nil {
		t.Fatal("expected an error when persistence fails")
	}

	if got := svc.Get().WebhookURL; got != "" {
		t.Errorf("in-memory config mutated despite failed persist: %q", got)
	}
}

func TestAuditLogsClampsPagination(t *testing.T) {
	ctx := context.Background()
	svc := newInitialized(t, memory.New())

	for range 4 {
		if _, err := svc.Update(ctx, settings.Overrides{WebhookEnabled: ptr(true)}, settings.Meta{}); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"zero page → 1", 0, 10, 1, 10},
		{"negative page → 1", -3, 10, 1, 10},
		{"zero limit → 1", 1, 0, 1, 1},
		{"oversized limit → 100", 1, 5000, 1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.AuditLogs(ctx, tt.page, tt.limit)
			if err != nil {
				t.Fatalf("AuditLogs: %v", err)
			}
			if page.Pagination.Page != tt.wantPage || page.Pagination.Limit != tt.wantLimit {
				t.Errorf("pagination: got page=%d limit=%d, want page=%d limit=%d",
					page.Pagination.Page, page.Pagination.Limit, tt.wantPage, tt.wantLimit)
			}
			if page.Pagination.Total != 5 {
				t.Errorf("total: got %d, want 5", page.Pagination.Total)
			}
		})
	}

	// 5 entries at limit 2 → 3 pages, newest first.
	page, err := svc.AuditLogs(ctx, 3, 2)
	if err != nil {
		t.Fatalf("AuditLogs: %v", err)
	}
	if page.Pagination.TotalPages != 3 {
		t.Errorf("totalPages: got %d, want 3", page.Pagination.TotalPages)
	}
	if len(page.Items) != 1 {
		t.Fatalf("last page size: got %d, want 1", len(page.Items))
	}
	if page.Items[0].Action != settings.ActionBootstrap {
		t.Errorf("oldest entry: got %q, want bootstrap", page.Items[0].Action)
	}
}
