package route_test

import (
	"encoding/json"
	"testing"

	"github.com/adminkit/notify/route"
)

func matrix(def route.Rule, routes ...route.Route) route.Matrix {
	m := route.Matrix{Default: def}
	for _, rt := range routes {
		m.Set(rt.Pattern, rt.Rule)
	}
	return m
}

func TestResolveExactMatchWins(t *testing.T) {
	m := matrix(
		route.Rule{SystemLog: true},
		route.Route{Pattern: "user.*", Rule: route.Rule{Webhook: true}},
		route.Route{Pattern: "user.created", Rule: route.Rule{Telegram: true}},
	)

	got := route.Resolve("user.created", m)
	if !got.Telegram || got.Webhook {
		t.Fatalf("exact match should win over wildcard, got %+v", got)
	}
}

func TestResolveLongestWildcardPrefixWins(t *testing.T) {
	m := matrix(
		route.Rule{SystemLog: true},
		route.Route{Pattern: "user.*", Rule: route.Rule{Webhook: true}},
		route.Route{Pattern: "user.status.*", Rule: route.Rule{Telegram: true}},
	)

	got := route.Resolve("user.status.limited", m)
	if !got.Telegram || got.Webhook {
		t.Fatalf(`"user.status.*" should beat "user.*", got %+v`, got)
	}

	got = route.Resolve("user.deleted", m)
	if !got.Webhook || got.Telegram {
		t.Fatalf(`"user.*" should match user.deleted, got %+v`, got)
	}
}

func TestResolveTieBreaksOnRegistrationOrder(t *testing.T) {
	tie := matrix(
		route.Rule{},
		route.Route{Pattern: "usr.*", Rule: route.Rule{Webhook: true}},
		route.Route{Pattern: "usr.o*", Rule: route.Rule{Telegram: true}},
	)
	got := route.Resolve("usr.order", tie)
	if !got.Telegram {
		t.Fatalf("strictly longer prefix should win regardless of order, got %+v", got)
	}

	// Two identical-length matching prefixes: first-registered wins.
	dup := route.Matrix{Default: route.Rule{}}
	dup.Routes = []route.Route{
		{Pattern: "sec*", Rule: route.Rule{Webhook: true}},
		{Pattern: "sec*", Rule: route.Rule{Telegram: true}},
	}
	got = route.Resolve("security.alert", dup)
	if !got.Webhook || got.Telegram {
		t.Fatalf("first-registered route should win ties, got %+v", got)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	m := matrix(
		route.Rule{SystemLog: true},
		route.Route{Pattern: "user.*", Rule: route.Rule{Webhook: true}},
	)

	got := route.Resolve("billing.invoice", m)
	if !got.SystemLog || got.Webhook || got.Telegram {
		t.Fatalf("unmatched event should use default, got %+v", got)
	}
}

func TestMatrixSetPreservesOrder(t *testing.T) {
	var m route.Matrix
	m.Set("a.*", route.Rule{Webhook: true})
	m.Set("b.*", route.Rule{Telegram: true})
	m.Set("a.*", route.Rule{SystemLog: true}) // replace, not re-append

	if len(m.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(m.Routes))
	}
	if m.Routes[0].Pattern != "a.*" || !m.Routes[0].Rule.SystemLog {
		t.Fatalf("first route should stay first and carry the new rule: %+v", m.Routes)
	}
}

func TestMatrixJSONRoundTripKeepsOrder(t *testing.T) {
	var m route.Matrix
	m.Default = route.Rule{SystemLog: true}
	m.Set("security.*", route.Rule{Webhook: true, Telegram: true, SystemLog: true})
	m.Set("user.*", route.Rule{SystemLog: true})

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}

	var back route.Matrix
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}

	if len(back.Routes) != 2 || back.Routes[0].Pattern != "security.*" || back.Routes[1].Pattern != "user.*" {
		t.Fatalf("order lost in round trip: %+v", back.Routes)
	}
	if !back.Default.SystemLog {
		t.Fatalf("default lost in round trip: %+v", back.Default)
	}
}
