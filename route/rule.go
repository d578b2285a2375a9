// Package route decides which delivery channels fire for a given event name.
//
// The route matrix maps event-name patterns to per-channel enable flags.
// A pattern is either an exact event name or a prefix wildcard ending in '*'
// ("user.*" matches every event starting with "user."). Routes are kept in
// registration order: when two wildcard prefixes of equal length match,
// the first-registered route wins.
package route

import "strings"

// Wildcard is the suffix marking a prefix-wildcard pattern.
const Wildcard = "*"

// Rule is the set of channel enable flags for one pattern.
// Each flag independently gates one delivery channel.
type Rule struct {
	Webhook   bool `json:"webhook"`
	Telegram  bool `json:"telegram"`
	SystemLog bool `json:"systemLog"`
}

// Route binds one pattern to a rule.
type Route struct {
	Pattern string `json:"pattern"`
	Rule    Rule   `json:"rule"`
}

// Matrix is the full routing policy: an always-present default rule plus an
// ordered list of pattern routes. It serializes routes as a JSON array so
// registration order survives persistence round-trips.
type Matrix struct {
	Default Rule    `json:"default"`
	Routes  []Route `json:"routes"`
}

// Set registers or replaces the rule for a pattern. A new pattern is
// appended, preserving first-registered order for tie-breaking.
func (m *Matrix) Set(pattern string, r Rule) {
	for i := range m.Routes {
		if m.Routes[i].Pattern == pattern {
			m.Routes[i].Rule = r
			return
		}
	}
	m.Routes = append(m.Routes, Route{Pattern: pattern, Rule: r})
}

// Lookup returns the rule registered for an exact pattern string.
func (m Matrix) Lookup(pattern string) (Rule, bool) {
	for _, rt := range m.Routes {
		if rt.Pattern == pattern {
			return rt.Rule, true
		}
	}
	return Rule{}, false
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := Matrix{Default: m.Default}
	if len(m.Routes) > 0 {
		out.Routes = make([]Route, len(m.Routes))
		copy(out.Routes, m.Routes)
	}
	return out
}

// IsWildcard reports whether pattern is a prefix-wildcard pattern.
func IsWildcard(pattern string) bool {
	return strings.HasSuffix(pattern, Wildcard)
}
