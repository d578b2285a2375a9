// Package settings is the single source of truth for the notification
// routing and delivery policy. It loads the singleton configuration record
// at startup, serves sanitized read views, applies partial updates, and
// keeps an audit trail of every mutation.
package settings

import (
	"os"
	"strconv"
	"time"

	"github.com/adminkit/notify/internal/entity"
	"github.com/adminkit/notify/route"
)

// Validation floors for the numeric delivery policy fields. Update requests
// below these bounds are dropped silently rather than rejected.
const (
	MinTimeout       = time.Second
	MinRetryAttempts = 1
	MinRetryDelay    = 100 * time.Millisecond
)

// Settings is the in-memory configuration. The webhook secret is held as
// plaintext here and never leaves the package except through WebhookTarget.
type Settings struct {
	entity.Entity

	WebhookEnabled bool
	WebhookURL     string
	WebhookSecret  string
	Timeout        time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	Routes         route.Matrix
}

// Record is the persisted shape of Settings. The secret is stored as
// versioned ciphertext; SecretEncrypted marks legacy plaintext records so
// Initialize can migrate them.
type Record struct {
	WebhookEnabled  bool         `json:"webhookEnabled" bson:"webhook_enabled"`
	WebhookURL      string       `json:"webhookUrl" bson:"webhook_url"`
	WebhookSecret   string       `json:"webhookSecret" bson:"webhook_secret"`
	SecretEncrypted bool         `json:"secretEncrypted" bson:"secret_encrypted"`
	TimeoutMs       int          `json:"timeoutMs" bson:"timeout_ms"`
	RetryAttempts   int          `json:"retryAttempts" bson:"retry_attempts"`
	RetryDelayMs    int          `json:"retryDelayMs" bson:"retry_delay_ms"`
	Routes          route.Matrix `json:"routeMatrix" bson:"route_matrix"`
	CreatedAt       time.Time    `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time    `json:"updatedAt" bson:"updated_at"`
}

// View is the read-only shape returned to callers. It never carries the
// secret itself, only whether one is configured.
type View struct {
	WebhookEnabled          bool         `json:"webhookEnabled"`
	WebhookURL              string       `json:"webhookUrl"`
	WebhookSecretConfigured bool         `json:"webhookSecretConfigured"`
	TimeoutMs               int          `json:"timeoutMs"`
	RetryAttempts           int          `json:"retryAttempts"`
	RetryDelayMs            int          `json:"retryDelayMs"`
	Routes                  route.Matrix `json:"routeMatrix"`
	CreatedAt               time.Time    `json:"createdAt"`
	UpdatedAt               time.Time    `json:"updatedAt"`
}

// RuleOverride is a partial route rule: nil flags inherit from the current
// default rule at merge time.
type RuleOverride struct {
	Webhook   *bool `json:"webhook,omitempty"`
	Telegram  *bool `json:"telegram,omitempty"`
	SystemLog *bool `json:"systemLog,omitempty"`
}

// Overrides is a partial update: nil fields leave the current value
// unchanged. Out-of-range numeric values are dropped, not rejected.
type Overrides struct {
	WebhookEnabled *bool                    `json:"webhookEnabled,omitempty"`
	WebhookURL     *string                  `json:"webhookUrl,omitempty"`
	WebhookSecret  *string                  `json:"webhookSecret,omitempty"`
	TimeoutMs      *int                     `json:"timeoutMs,omitempty"`
	RetryAttempts  *int                     `json:"retryAttempts,omitempty"`
	RetryDelayMs   *int                     `json:"retryDelayMs,omitempty"`
	Default        *RuleOverride            `json:"default,omitempty"`
	Routes         map[string]*RuleOverride `json:"routes,omitempty"`
}

// Defaults returns the built-in configuration overlaid with NOTIFY_*
// environment variables. Security- and system-scoped events escalate to all
// channels out of the box; everything else lands in the system log only.
func Defaults() Settings {
	s := Settings{
		Entity:        entity.New(),
		WebhookURL:    os.Getenv("NOTIFY_WEBHOOK_URL"),
		WebhookSecret: os.Getenv("NOTIFY_WEBHOOK_SECRET"),
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		Routes: route.Matrix{
			Default: route.Rule{SystemLog: true},
		},
	}
	s.Routes.Set("security.*", route.Rule{Webhook: true, Telegram: true, SystemLog: true})
	s.Routes.Set("system.*", route.Rule{Webhook: true, Telegram: true, SystemLog: true})

	if v, err := strconv.ParseBool(os.Getenv("NOTIFY_WEBHOOK_ENABLED")); err == nil {
		s.WebhookEnabled = v
	}
	if v, err := strconv.Atoi(os.Getenv("NOTIFY_TIMEOUT_MS")); err == nil && time.Duration(v)*time.Millisecond >= MinTimeout {
		s.Timeout = time.Duration(v) * time.Millisecond
	}
	if v, err := strconv.Atoi(os.Getenv("NOTIFY_RETRY_ATTEMPTS")); err == nil && v >= MinRetryAttempts {
		s.RetryAttempts = v
	}
	if v, err := strconv.Atoi(os.Getenv("NOTIFY_RETRY_DELAY_MS")); err == nil && time.Duration(v)*time.Millisecond >= MinRetryDelay {
		s.RetryDelay = time.Duration(v) * time.Millisecond
	}

	return s
}

// view returns the sanitized read shape of s.
func (s Settings) view() View {
	return View{
		WebhookEnabled:          s.WebhookEnabled,
		WebhookURL:              s.WebhookURL,
		WebhookSecretConfigured: s.WebhookSecret != "",
		TimeoutMs:               int(s.Timeout / time.Millisecond),
		RetryAttempts:           s.RetryAttempts,
		RetryDelayMs:            int(s.RetryDelay / time.Millisecond),
		Routes:                  s.Routes.Clone(),
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

// record returns the persisted shape of s with the secret already
// replaced by its ciphertext.
func (s Settings) record(cipherSecret string) *Record {
	return &Record{
		WebhookEnabled:  s.WebhookEnabled,
		WebhookURL:      s.WebhookURL,
		WebhookSecret:   cipherSecret,
		SecretEncrypted: cipherSecret != "",
		TimeoutMs:       int(s.Timeout / time.Millisecond),
		RetryAttempts:   s.RetryAttempts,
		RetryDelayMs:    int(s.RetryDelay / time.Millisecond),
		Routes:          s.Routes.Clone(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// fromRecord rebuilds in-memory settings from a persisted record and the
// already-decrypted secret.
func fromRecord(rec *Record, plainSecret string) Settings {
	return Settings{
		Entity: entity.Entity{
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		},
		WebhookEnabled: rec.WebhookEnabled,
		WebhookURL:     rec.WebhookURL,
		WebhookSecret:  plainSecret,
		Timeout:        time.Duration(rec.TimeoutMs) * time.Millisecond,
		RetryAttempts:  rec.RetryAttempts,
		RetryDelay:     time.Duration(rec.RetryDelayMs) * time.Millisecond,
		Routes:         rec.Routes.Clone(),
	}
}
