package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/opencivic/pulso/internal/aggregator"
)

// Scheduler refreshes the news cache (and thereby warms the local index) on
// a cron schedule, so the first request after a TTL expiry does not pay the
// full fan-out latency.
type Scheduler struct {
	Agg  *aggregator.Service
	Cron string
	Stop chan struct{}

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	if !isDue(s.Cron, s.lastRun) {
		return
	}
	now := time.Now()
	s.lastRun = &now

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	logger := log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	result, err := s.Agg.AggregateNews(ctx, 0, "", nil)
	if err != nil {
		logger.Printf("background refresh failed: %v", err)
		return
	}
	logger.Printf("background refresh: %d articles across %d sources", result.TotalCount, len(result.SourceStats))
}

// isDue determines if a refresh with cronSpec should run now based on the
// last run time. Supports "@daily", "@hourly", and standard 5-field cron
// expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Fallback: treat as @hourly if invalid
			if last == nil {
				return true
			}
			return now.Sub(*last) >= time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
