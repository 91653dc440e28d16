package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, stale := s.Get(ctx, "missing"); ok || stale {
		t.Fatal("empty store should miss cleanly")
	}

	if err := s.Set(ctx, "k", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	entry, ok, _ := s.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit within ttl")
	}
	if string(entry.Payload) != `{"a":1}` {
		t.Fatalf("payload mismatch: %s", entry.Payload)
	}
	if !entry.ExpiresAt.Equal(entry.CreatedAt.Add(time.Minute)) {
		t.Fatal("expiresAt must equal createdAt + ttl")
	}
}

func TestMemoryStoreExpiryKeepsStaleEntry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "k", []byte("v"), time.Minute)

	now = now.Add(2 * time.Minute)
	entry, ok, stale := s.Get(ctx, "k")
	if ok {
		t.Fatal("expired entry must be a miss")
	}
	if !stale {
		t.Fatal("expired entry should still be readable as stale")
	}
	if string(entry.Payload) != "v" {
		t.Fatal("stale read lost the payload")
	}

	// a miss never auto-deletes; the stale snapshot survives further reads
	if _, _, stale := s.Get(ctx, "k"); !stale {
		t.Fatal("stale entry disappeared after a read")
	}
}

func TestMemoryStoreLastWriterWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("first"), time.Minute)
	_ = s.Set(ctx, "k", []byte("second"), time.Minute)
	entry, ok, _ := s.Get(ctx, "k")
	if !ok || string(entry.Payload) != "second" {
		t.Fatalf("expected replace-on-key, got %s", entry.Payload)
	}
}

func TestMemoryStoreInvalidate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"), time.Minute)
	_ = s.Set(ctx, "b", []byte("2"), time.Minute)

	if err := s.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, _, stale := s.Get(ctx, "a"); stale {
		t.Fatal("invalidated key must be fully gone, not stale")
	}
	if _, ok, _ := s.Get(ctx, "b"); !ok {
		t.Fatal("sibling key should survive targeted invalidation")
	}

	if err := s.Invalidate(ctx, ""); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	stats, _ := s.Stats(ctx)
	if stats.Size != 0 {
		t.Fatalf("clear-all left %d entries", stats.Size)
	}
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1234"), time.Minute)
	_ = s.Set(ctx, "b", []byte("56"), time.Minute)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Size != 2 || len(stats.Keys) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.ApproxBytes != 6 {
		t.Fatalf("expected 6 payload bytes, got %d", stats.ApproxBytes)
	}
}

func TestKeyDeterministicUnderReordering(t *testing.T) {
	a := Key("news", "20", Multi([]string{"Política", "social"}), Multi([]string{"rss-1", "videos"}))
	b := Key("news", "20", Multi([]string{"social", "política"}), Multi([]string{"videos", "rss-1"}))
	if a != b {
		t.Fatalf("equivalent queries must share a key: %q vs %q", a, b)
	}
	c := Key("news", "20", Multi([]string{"social"}), Multi([]string{"videos", "rss-1"}))
	if a == c {
		t.Fatal("different category sets must not collide")
	}
}

func TestMultiIgnoresEmptyValues(t *testing.T) {
	if got := Multi([]string{" ", "", "a", " B "}); got != "a,b" {
		t.Fatalf("Multi = %q, want %q", got, "a,b")
	}
}
