package envelope

import (
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScopeSystem is the scope assigned to events whose name carries no
// dot-separated scope segment.
const ScopeSystem = "system"

// Options are the optional producer inputs for Build.
type Options struct {
	Source   string
	Severity Severity
	Actor    *Actor
	Request  *Request
}

// Build produces a fully populated envelope for one occurrence of the given
// event. The ID is a fresh UUIDv4 per call; the scope is the text before the
// first '.' in the event name; scalar data is wrapped as {"value": ...} so
// the data field is always a JSON object or array.
func Build(event string, data any, opts Options) *Envelope {
	severity := opts.Severity
	if severity == "" {
		severity = SeverityInfo
	}

	return &Envelope{
		ID:        uuid.New(),
		Event:     event,
		Scope:     scopeOf(event),
		Source:    opts.Source,
		Timestamp: time.Now().UTC(),
		Severity:  severity,
		Actor:     opts.Actor,
		Request:   opts.Request,
		Data:      normalizeData(data),
	}
}

// scopeOf returns the text before the first '.' in the event name,
// or ScopeSystem when the event carries no scope segment.
func scopeOf(event string) string {
	scope, _, found := strings.Cut(event, ".")
	if !found || scope == "" {
		return ScopeSystem
	}
	return scope
}

// normalizeData keeps structured payloads as-is and wraps scalars so the
// serialized data field is always an object or array.
func normalizeData(data any) any {
	if data == nil {
		return map[string]any{}
	}

	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return map[string]any{}
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return data
	default:
		return map[string]any{"value": data}
	}
}
