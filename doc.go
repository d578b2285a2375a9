// Package notify is the event notification and delivery subsystem of an
// administrative platform.
//
// Notify is a library, not a service. The embedding application constructs
// one Service, calls Initialize once at boot, and hands it to producers.
// Producers emit domain events ("user.created", "security.critical", ...)
// and Notify fans them out to the configured channels: a signed outbound
// webhook, a chat-bot alert channel, and the local system log. Which
// channels fire for a given event is decided by a persisted route matrix
// supporting exact names and prefix-wildcard patterns.
//
// Key properties:
//   - Emit is fire-and-forget: it never fails and never blocks on delivery
//   - HMAC-SHA256 signature on every webhook delivery
//   - Single sequential delivery worker with linear backoff retries
//   - Persisted, audited configuration with encrypted secrets at rest
//   - Composable store pattern with multiple backends (Redis, SQLite, Mongo, Memory)
//
// Quick start:
//
//	svc, err := notify.New(
//	    notify.WithStore(memoryStore),
//	    notify.WithEncryptor(enc),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Initialize(ctx)
//
//	svc.Emit(ctx, "user.created", map[string]any{"user_id": "u_42"},
//	    notify.WithActor(envelope.Actor{ID: "admin_1", Username: "root"}),
//	)
package notify
