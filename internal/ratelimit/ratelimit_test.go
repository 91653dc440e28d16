package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

func testLimiter(max int, window time.Duration) (*Limiter, *time.Time) {
	l := New(config.RateLimitConfig{MaxRequests: max, Window: window})
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiterBoundary(t *testing.T) {
	l, _ := testLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := l.Check("api"); err != nil {
			t.Fatalf("call %d should be allowed: %v", i+1, err)
		}
	}
	// the (max+1)-th call inside the window is rejected
	err := l.Check("api")
	if err == nil {
		t.Fatal("fourth call should be rejected")
	}
	var typed *content.Error
	if !errors.As(err, &typed) || typed.Kind != content.RateLimited {
		t.Fatalf("rejection must be the typed rate-limited error, got %v", err)
	}
	if typed.SourceID != "api" {
		t.Fatalf("error should carry the source id, got %q", typed.SourceID)
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	l, now := testLimiter(2, time.Minute)

	_ = l.Check("api")
	*now = now.Add(30 * time.Second)
	_ = l.Check("api")
	if l.Allow("api") {
		t.Fatal("window is full")
	}

	// the first attempt ages out after the window elapses
	*now = now.Add(31 * time.Second)
	if !l.Allow("api") {
		t.Fatal("expected a free slot after the oldest attempt expired")
	}
	if err := l.Check("api"); err != nil {
		t.Fatalf("call after expiry should be allowed: %v", err)
	}
}

func TestLimiterIndependentPerSource(t *testing.T) {
	l, _ := testLimiter(1, time.Minute)
	if err := l.Check("a"); err != nil {
		t.Fatalf("first call to a: %v", err)
	}
	if err := l.Check("b"); err != nil {
		t.Fatalf("windows must be independent per source: %v", err)
	}
	if err := l.Check("a"); err == nil {
		t.Fatal("a's window is full")
	}
}

func TestRetryAfter(t *testing.T) {
	l, now := testLimiter(1, time.Minute)

	if d := l.RetryAfter("api"); d != 0 {
		t.Fatalf("unlimited source should report 0, got %s", d)
	}
	_ = l.Check("api")
	if d := l.RetryAfter("api"); d != time.Minute {
		t.Fatalf("expected a full window, got %s", d)
	}
	*now = now.Add(40 * time.Second)
	if d := l.RetryAfter("api"); d != 20*time.Second {
		t.Fatalf("expected 20s remaining, got %s", d)
	}
	*now = now.Add(21 * time.Second)
	if d := l.RetryAfter("api"); d != 0 {
		t.Fatalf("expired window should report 0, got %s", d)
	}
}

func TestRecordWithoutCheck(t *testing.T) {
	l, _ := testLimiter(2, time.Minute)
	l.Record("api")
	l.Record("api")
	if l.Allow("api") {
		t.Fatal("recorded attempts must count against the window")
	}
}
