// Package ratelimit guards outbound calls to metered upstreams with a
// sliding window per source id.
package ratelimit

import (
	"sync"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string][]time.Time
	now     func() time.Time
}

func New(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		max:     cfg.MaxRequests,
		window:  cfg.Window,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether another call to sourceID fits in the current
// window. Entries older than the window are pruned on every check.
func (l *Limiter) Allow(sourceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(sourceID)) < l.max
}

// Record notes an attempted call against sourceID's window.
func (l *Limiter) Record(sourceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.windows[sourceID] = append(l.prune(sourceID), l.now())
}

// Check combines Allow and Record: it admits and records the call, or
// returns a typed rate-limited error so callers can fall back to cached or
// local data instead of retrying.
func (l *Limiter) Check(sourceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.prune(sourceID)
	if len(kept) >= l.max {
		l.windows[sourceID] = kept
		return content.NewError(content.RateLimited, sourceID, nil)
	}
	l.windows[sourceID] = append(kept, l.now())
	return nil
}

// RetryAfter returns how long until the oldest in-window attempt ages out,
// as a backoff hint. Zero means the caller is not currently limited.
func (l *Limiter) RetryAfter(sourceID string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.prune(sourceID)
	l.windows[sourceID] = kept
	if len(kept) < l.max {
		return 0
	}
	return kept[0].Add(l.window).Sub(l.now())
}

// prune drops timestamps older than the window. Caller holds the mutex.
func (l *Limiter) prune(sourceID string) []time.Time {
	cutoff := l.now().Add(-l.window)
	ts := l.windows[sourceID]
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
