// Package fetch runs adapter calls against every enabled source
// concurrently and joins on a settle-all barrier: each call is individually
// time-boxed, and no failure or timeout cancels a sibling.
package fetch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/opencivic/pulso/internal/content"
	"github.com/opencivic/pulso/internal/sources"
	"github.com/opencivic/pulso/internal/telemetry"
)

type FanOut struct {
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

func NewFanOut(tele *telemetry.Telemetry) *FanOut {
	return &FanOut{
		logger:    log.New(log.Writer(), "[FETCH] ", log.LstdFlags),
		telemetry: tele,
	}
}

// FetchAll invokes every adapter concurrently and returns one FetchResult
// per adapter, in the adapters' (priority) order. The batch completes when
// all calls have settled; overall latency is bounded by the largest
// per-source timeout, not the sum.
func (f *FanOut) FetchAll(ctx context.Context, adapters []sources.Adapter, query string) []content.FetchResult {
	results := make([]content.FetchResult, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(slot int, a sources.Adapter) {
			defer wg.Done()
			src := a.Source()

			callCtx := ctx
			var cancel context.CancelFunc
			if src.Timeout > 0 {
				callCtx, cancel = context.WithTimeout(ctx, src.Timeout)
				defer cancel()
			}

			res := a.Fetch(callCtx, query)
			if !res.Succeeded {
				f.logger.Printf("source %s failed after %s: %v", src.ID, res.Duration.Round(time.Millisecond), res.Err)
			}
			if f.telemetry != nil {
				f.telemetry.ObserveFetch(src.ID, res.Succeeded, res.Duration, len(res.Items))
			}
			results[slot] = res
		}(i, adapter)
	}
	wg.Wait()

	return results
}
