package delivery_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/adminkit/notify/delivery"
	"github.com/adminkit/notify/envelope"
)

type captureAlerter struct {
	enabled bool
	err     error
	texts   []string
}

func (a *captureAlerter) Enabled() bool { return a.enabled }

func (a *captureAlerter) SendPlainAlert(_ context.Context, text string) error {
	if a.err != nil {
		return a.err
	}
	a.texts = append(a.texts, text)
	return nil
}

func TestChatDispatchRendersEnvelope(t *testing.T) {
	a := &captureAlerter{enabled: true}
	d := delivery.NewChatDispatcher(a, quietLogger())

	e := envelope.Build("security.password_changed", map[string]any{"userId": 12}, envelope.Options{
		Severity: envelope.SeverityWarning,
		Actor:    &envelope.Actor{ID: "u-12", Username: "alice", Role: "admin"},
		Request:  &envelope.Request{IP: "192.0.2.10"},
	})

	if err := d.Dispatch(context.Background(), e); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(a.texts) != 1 {
		t.Fatalf("alerts sent: %d, want 1", len(a.texts))
	}

	text := a.texts[0]
	for _, want := range []string{
		"[WARNING] security.password_changed",
		"ID: " + e.ID.String(),
		"Actor: alice (admin)",
		"IP: 192.0.2.10",
		`"userId":12`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("alert missing %q:\n%s", want, text)
		}
	}
}

func TestChatDispatchTruncatesLargeData(t *testing.T) {
	a := &captureAlerter{enabled: true}
	d := delivery.NewChatDispatcher(a, quietLogger())

	e := envelope.Build("system.dump", map[string]any{
		"blob": strings.Repeat("x", 5000),
	}, envelope.Options{})

	if err := d.Dispatch(context.Background(), e); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	text := a.texts[0]
	_, data, ok := strings.Cut(text, "Data: ")
	if !ok {
		t.Fatalf("alert missing data section:\n%s", text)
	}
	if !strings.HasSuffix(data, "…") {
		t.Errorf("truncated data should end with ellipsis, got tail %q", data[len(data)-8:])
	}
	if len(data) > 1200+len("…") {
		t.Errorf("data length: %d, want at most %d", len(data), 1200+len("…"))
	}
}

func TestChatDispatchTruncatesOnRuneBoundary(t *testing.T) {
	a := &captureAlerter{enabled: true}
	d := delivery.NewChatDispatcher(a, quietLogger())

	// Two-byte runes guarantee some cut offsets land mid-rune.
	e := envelope.Build("system.dump", map[string]any{
		"blob": strings.Repeat("é", 3000),
	}, envelope.Options{})

	if err := d.Dispatch(context.Background(), e); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	text := a.texts[0]
	if !utf8.ValidString(text) {
		t.Fatal("truncated alert is not valid UTF-8")
	}
	_, data, ok := strings.Cut(text, "Data: ")
	if !ok {
		t.Fatalf("alert missing data section:\n%s", text)
	}
	if !strings.HasSuffix(data, "…") {
		t.Errorf("truncated data should end with ellipsis, got tail %q", data[len(data)-8:])
	}
	if len(data) > 1200+len("…") {
		t.Errorf("data length: %d, want at most %d", len(data), 1200+len("…"))
	}
}

func TestChatDispatchSkipsWhenUnavailable(t *testing.T) {
	for name, d := range map[string]*delivery.ChatDispatcher{
		"nil alerter":      delivery.NewChatDispatcher(nil, quietLogger()),
		"disabled alerter": delivery.NewChatDispatcher(&captureAlerter{enabled: false}, quietLogger()),
	} {
		if err := d.Dispatch(context.Background(), env("user.created")); err != nil {
			t.Errorf("%s: got %v, want nil (silent skip)", name, err)
		}
	}
}

func TestChatDispatchPropagatesAlerterError(t *testing.T) {
	boom := errors.New("telegram: 429")
	d := delivery.NewChatDispatcher(&captureAlerter{enabled: true, err: boom}, quietLogger())

	err := d.Dispatch(context.Background(), env("user.created"))
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped alerter error", err)
	}
	if delivery.IsPermanent(err) {
		t.Fatalf("alerter failures should be transient, got permanent: %v", err)
	}
}
