// Package envelope defines the immutable event envelope produced for every
// emitted domain event, and the builder that constructs it.
package envelope

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how urgent an event is to a human operator.
type Severity string

// Severity levels, from least to most urgent.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Actor identifies the platform user that triggered the event, if any.
type Actor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Request carries client metadata from the request that triggered the event.
type Request struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}

// Envelope is the immutable, uniquely identified message describing one
// occurrence of a domain event. Its JSON shape is part of the outbound
// webhook protocol and must not change: consumers verify signatures over
// the serialized form.
//
// Actor and Request serialize as null when absent; the shape is fixed for
// downstream consumers, fields are never omitted.
type Envelope struct {
	ID        uuid.UUID `json:"id"`
	Event     string    `json:"event"`
	Scope     string    `json:"scope"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Actor     *Actor    `json:"actor"`
	Request   *Request  `json:"request"`
	Data      any       `json:"data"`
}
