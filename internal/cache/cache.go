// Package cache provides the TTL result cache. Entries past their TTL are
// misses but are not auto-deleted, so callers may still read a stale
// snapshot when every upstream is down.
package cache

import (
	"context"
	"time"
)

// Entry is one timestamped result snapshot.
type Entry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Age returns how long ago the entry was created.
func (e Entry) Age(now time.Time) time.Duration { return now.Sub(e.CreatedAt) }

// Expired reports whether the entry is past its TTL.
func (e Entry) Expired(now time.Time) bool { return now.After(e.ExpiresAt) }

// Stats summarizes a store's contents.
type Stats struct {
	Size        int      `json:"size"`
	Keys        []string `json:"keys"`
	ApproxBytes int64    `json:"approx_bytes"`
}

// Store is the TTL cache contract. Get returns ok=false on a fresh miss;
// a stale entry comes back with ok=false and stale=true so callers can
// decide whether stale data is good enough. Invalidate with an empty key
// clears everything. Writes replace whole entries per key, last writer wins.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Stats(ctx context.Context) (Stats, error)
}
