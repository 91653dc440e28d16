package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process backend: a mutex-guarded map with
// replace-on-key writes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false, false
	}
	if entry.Expired(s.now()) {
		// stale entries stay put: the caller decides whether to refetch
		// or serve them anyway
		return entry, false, true
	}
	return entry, true, false
}

func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{
		Key:       key,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		s.entries = make(map[string]Entry)
		return nil
	}
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{Size: len(s.entries), Keys: make([]string, 0, len(s.entries))}
	for k, e := range s.entries {
		stats.Keys = append(stats.Keys, k)
		stats.ApproxBytes += int64(len(e.Payload))
	}
	return stats, nil
}
