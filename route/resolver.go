package route

import "strings"

// Resolve returns the rule that applies to an event name.
//
// Resolution order:
//  1. A route whose pattern equals the event name exactly.
//  2. Among wildcard routes whose literal prefix (pattern minus trailing
//     '*') prefixes the event name, the one with the strictly longest
//     prefix: "user.status.*" beats "user.*" for "user.status.limited".
//     Equal-length prefixes fall back to registration order.
//  3. The default rule.
func Resolve(event string, m Matrix) Rule {
	if rule, ok := m.Lookup(event); ok {
		return rule
	}

	best := -1
	rule := m.Default
	for _, rt := range m.Routes {
		if !IsWildcard(rt.Pattern) {
			continue
		}
		prefix := strings.TrimSuffix(rt.Pattern, Wildcard)
		if !strings.HasPrefix(event, prefix) {
			continue
		}
		if len(prefix) > best {
			best = len(prefix)
			rule = rt.Rule
		}
	}

	return rule
}
