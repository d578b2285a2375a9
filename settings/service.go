package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adminkit/notify/route"
	"github.com/adminkit/notify/secrets"
)

// Target is the webhook delivery view handed to the webhook dispatcher.
// It is the only way the plaintext secret leaves this package.
type Target struct {
	Enabled bool
	URL     string
	Secret  string
	Timeout time.Duration
}

// Policy is the retry policy view handed to the delivery queue.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Service owns the in-memory configuration and mediates every read and
// mutation. It is safe for concurrent use.
type Service struct {
	store  Store
	enc    secrets.Encryptor
	logger *slog.Logger

	once sync.Once

	mu  sync.RWMutex
	cur Settings
}

// NewService creates a settings service. The configuration is the built-in
// defaults until Initialize loads the persisted record.
func NewService(store Store, enc secrets.Encryptor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		enc:    enc,
		logger: logger,
		cur:    Defaults(),
	}
}

// Initialize loads or creates the singleton configuration record. It is
// idempotent and race-safe: concurrent first callers block on the same
// underlying load, and every later call is a no-op. A storage failure is
// not fatal: the service falls back to in-memory defaults with a warning.
func (s *Service) Initialize(ctx context.Context) error {
	s.once.Do(func() { s.bootstrap(ctx) })
	return nil
}

func (s *Service) bootstrap(ctx context.Context) {
	rec, err := s.store.Load(ctx)

	switch {
	case err == nil:
		s.adopt(ctx, rec)

	case errors.Is(err, ErrNotFound):
		s.create(ctx)

	default:
		s.logger.WarnContext(ctx, "settings load failed; using in-memory defaults", "error", err)
	}
}

// adopt installs a loaded record, decrypting the secret and migrating
// legacy plaintext secrets to the encrypted format in place.
func (s *Service) adopt(ctx context.Context, rec *Record) {
	plain := rec.WebhookSecret

	switch {
	case rec.WebhookSecret == "":
		// nothing to decrypt

	case !rec.SecretEncrypted && !secrets.IsEncrypted(rec.WebhookSecret):
		// One-time startup migration: plaintext-in-storage is upgraded to
		// the encrypted format, best effort.
		cipher, err := s.enc.Encrypt(plain)
		if err != nil {
			s.logger.WarnContext(ctx, "secret migration failed", "error", err)
			break
		}
		rec.WebhookSecret = cipher
		rec.SecretEncrypted = true
		if err := s.store.Upsert(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "secret migration persist failed", "error", err)
		}

	default:
		plain = secrets.SafeDecrypt(s.enc, rec.WebhookSecret, "")
		if plain == "" {
			s.logger.WarnContext(ctx, "stored webhook secret could not be decrypted; signing disabled")
		}
	}

	s.mu.Lock()
	s.cur = fromRecord(rec, plain)
	s.mu.Unlock()
}

// create persists the default configuration as the singleton record and
// writes the bootstrap audit entry.
func (s *Service) create(ctx context.Context) {
	s.mu.RLock()
	cur := s.cur
	after := cur.view()
	s.mu.RUnlock()

	cipher, err := s.encryptSecret(cur.WebhookSecret)
	if err != nil {
		s.logger.WarnContext(ctx, "secret encryption failed at bootstrap", "error", err)
		return
	}

	if err := s.store.Upsert(ctx, cur.record(cipher)); err != nil {
		s.logger.WarnContext(ctx, "settings bootstrap persist failed; using in-memory defaults", "error", err)
		return
	}

	if err := s.store.AppendAudit(ctx, newAuditEntry(ActionBootstrap, nil, &after, Meta{})); err != nil {
		s.logger.WarnContext(ctx, "bootstrap audit append failed", "error", err)
	}
}

func (s *Service) encryptSecret(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	return s.enc.Encrypt(plain)
}

// Get returns a deep-copied, sanitized view of the current configuration.
func (s *Service) Get() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.view()
}

// WebhookTarget returns the delivery view for the webhook dispatcher,
// including the plaintext secret.
func (s *Service) WebhookTarget() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Target{
		Enabled: s.cur.WebhookEnabled,
		URL:     s.cur.WebhookURL,
		Secret:  s.cur.WebhookSecret,
		Timeout: s.cur.Timeout,
	}
}

// Policy returns the current retry policy for the delivery queue.
func (s *Service) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Policy{Attempts: s.cur.RetryAttempts, Delay: s.cur.RetryDelay}
}

// Routes returns a copy of the current route matrix.
func (s *Service) Routes() route.Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Routes.Clone()
}

// Update applies a partial configuration update. Only non-nil override
// fields change anything; numeric fields below their validation floor are
// dropped silently; route overrides are completed rule-by-rule from the
// current default rule. The full configuration is persisted and one audit
// entry is appended; audit failure never blocks the mutation.
func (s *Service) Update(ctx context.Context, ov Overrides, meta Meta) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.cur.view()
	next := s.merge(s.cur, ov)
	next.UpdatedAt = time.Now().UTC()

	cipher, err := s.encryptSecret(next.WebhookSecret)
	if err != nil {
		return View{}, fmt.Errorf("settings: encrypt secret: %w", err)
	}
	if err := s.store.Upsert(ctx, next.record(cipher)); err != nil {
		return View{}, fmt.Errorf("settings: persist update: %w", err)
	}

	s.cur = next
	after := next.view()

	if err := s.store.AppendAudit(ctx, newAuditEntry(ActionUpdate, &before, &after, meta)); err != nil {
		s.logger.WarnContext(ctx, "audit append failed", "error", err)
	}

	return after, nil
}

// merge applies ov onto a copy of cur with per-field present/absent
// semantics. It never mutates cur.
func (s *Service) merge(cur Settings, ov Overrides) Settings {
	next := cur
	next.Routes = cur.Routes.Clone()

	if ov.WebhookEnabled != nil {
		next.WebhookEnabled = *ov.WebhookEnabled
	}
	if ov.WebhookURL != nil {
		next.WebhookURL = *ov.WebhookURL
	}
	if ov.WebhookSecret != nil {
		next.WebhookSecret = *ov.WebhookSecret
	}
	if ov.TimeoutMs != nil {
		if d := time.Duration(*ov.TimeoutMs) * time.Millisecond; d >= MinTimeout {
			next.Timeout = d
		}
	}
	if ov.RetryAttempts != nil && *ov.RetryAttempts >= MinRetryAttempts {
		next.RetryAttempts = *ov.RetryAttempts
	}
	if ov.RetryDelayMs != nil {
		if d := time.Duration(*ov.RetryDelayMs) * time.Millisecond; d >= MinRetryDelay {
			next.RetryDelay = d
		}
	}

	if ov.Default != nil {
		next.Routes.Default = mergeRule(next.Routes.Default, ov.Default)
	}
	for pattern, ro := range ov.Routes {
		if ro == nil {
			continue // structurally invalid entry, ignored
		}
		next.Routes.Set(pattern, mergeRule(next.Routes.Default, ro))
	}

	return next
}

// mergeRule completes a partial rule from a base rule: absent flags take
// the base's values.
func mergeRule(base route.Rule, ro *RuleOverride) route.Rule {
	r := base
	if ro.Webhook != nil {
		r.Webhook = *ro.Webhook
	}
	if ro.Telegram != nil {
		r.Telegram = *ro.Telegram
	}
	if ro.SystemLog != nil {
		r.SystemLog = *ro.SystemLog
	}
	return r
}

// AuditLogs returns one page of audit history, newest first. The limit is
// clamped to [1,100] and the page floor is 1.
func (s *Service) AuditLogs(ctx context.Context, page, limit int) (AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	items, total, err := s.store.ListAudit(ctx, (page-1)*limit, limit)
	if err != nil {
		return AuditPage{}, fmt.Errorf("settings: list audit: %w", err)
	}

	totalPages := (total + limit - 1) / limit
	return AuditPage{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
