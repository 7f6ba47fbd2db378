package memory

import (
	"context"
	"testing"
	"time"

	"bible-quiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore(0)

	store.Add(app.NewSession("s-1", app.Dependencies{}))
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session present")
	}
	if got := len(store.List()); got != 1 {
		t.Fatalf("expected 1 session, got %d", got)
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(30 * time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	store.Add(app.NewSession("idle", app.Dependencies{}))
	store.Add(app.NewSession("busy", app.Dependencies{}))

	now = now.Add(20 * time.Minute)
	if _, ok := store.Get("busy"); !ok {
		t.Fatalf("expected busy session present")
	}
	expired, err := store.Expired(ctx)
	if err != nil {
		t.Fatalf("expired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expected nothing expired yet, got %v", expired)
	}

	now = now.Add(15 * time.Minute)
	expired, err = store.Expired(ctx)
	if err != nil {
		t.Fatalf("expired: %v", err)
	}
	if len(expired) != 1 || expired[0] != "idle" {
		t.Fatalf("expected only the idle session, got %v", expired)
	}
}

func TestSessionStoreWithoutTTLNeverExpires(t *testing.T) {
	store := NewSessionStore(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	store.Add(app.NewSession("s-1", app.Dependencies{}))

	now = now.Add(24 * time.Hour)
	expired, err := store.Expired(context.Background())
	if err != nil {
		t.Fatalf("expired: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expected no expiry without ttl, got %v", expired)
	}
}
