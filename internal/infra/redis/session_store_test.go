package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"bible-quiz-service/internal/app"
)

func newClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, client := newClient(t)
	store := NewSessionStore(client, time.Minute)

	store.Add(app.NewSession("s-1", app.Dependencies{}))
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if len(store.List()) != 0 {
		t.Fatalf("expected no sessions")
	}
}

func TestSessionStoreReportsExpired(t *testing.T) {
	mr, client := newClient(t)
	store := NewSessionStore(client, time.Minute)

	store.Add(app.NewSession("s-1", app.Dependencies{}))
	store.Add(app.NewSession("s-2", app.Dependencies{}))

	mr.FastForward(30 * time.Second)
	store.Get("s-2") // refreshes the TTL
	mr.FastForward(45 * time.Second)

	expired, err := store.Expired(context.Background())
	if err != nil {
		t.Fatalf("expired: %v", err)
	}
	if len(expired) != 1 || expired[0] != "s-1" {
		t.Fatalf("expected only s-1 expired, got %v", expired)
	}
}
