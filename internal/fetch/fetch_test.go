package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
	"github.com/opencivic/pulso/internal/sources"
)

// stubAdapter scripts one source's behavior for fan-out tests.
type stubAdapter struct {
	src   config.SourceConfig
	items []content.Item
	err   error
	delay time.Duration
}

func (s *stubAdapter) Source() config.SourceConfig { return s.src }

func (s *stubAdapter) Fetch(ctx context.Context, query string) content.FetchResult {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return content.FetchResult{SourceID: s.src.ID, Succeeded: false,
				Err: content.NewError(content.UpstreamUnavailable, s.src.ID, ctx.Err())}
		}
	}
	if s.err != nil {
		return content.FetchResult{SourceID: s.src.ID, Succeeded: false,
			Err: content.NewError(content.UpstreamUnavailable, s.src.ID, s.err)}
	}
	return content.FetchResult{SourceID: s.src.ID, Items: s.items, Succeeded: true}
}

func TestFetchAllSettlesAllSources(t *testing.T) {
	f := NewFanOut(nil)
	adapters := []sources.Adapter{
		&stubAdapter{src: config.SourceConfig{ID: "a"}, items: []content.Item{{Title: "uno", URL: "/1"}}},
		&stubAdapter{src: config.SourceConfig{ID: "b"}, err: errors.New("connection refused")},
		&stubAdapter{src: config.SourceConfig{ID: "c"}, items: []content.Item{{Title: "dos", URL: "/2"}}},
	}
	results := f.FetchAll(context.Background(), adapters, "")
	if len(results) != 3 {
		t.Fatalf("expected 3 settled results, got %d", len(results))
	}
	if !results[0].Succeeded || results[1].Succeeded || !results[2].Succeeded {
		t.Fatalf("unexpected outcomes: %+v", results)
	}
	// one failure must not erase the siblings' items
	if len(results[0].Items)+len(results[2].Items) != 2 {
		t.Fatal("successful sources lost items")
	}
	if results[1].Err == nil {
		t.Fatal("failed source should carry its error")
	}
}

func TestFetchAllPreservesConfiguredOrder(t *testing.T) {
	f := NewFanOut(nil)
	adapters := []sources.Adapter{
		&stubAdapter{src: config.SourceConfig{ID: "slow"}, delay: 50 * time.Millisecond},
		&stubAdapter{src: config.SourceConfig{ID: "fast"}},
	}
	results := f.FetchAll(context.Background(), adapters, "")
	if results[0].SourceID != "slow" || results[1].SourceID != "fast" {
		t.Fatalf("results must keep adapter order, got %s then %s", results[0].SourceID, results[1].SourceID)
	}
}

func TestFetchAllTimeoutFailsOnlyThatSource(t *testing.T) {
	f := NewFanOut(nil)
	adapters := []sources.Adapter{
		&stubAdapter{src: config.SourceConfig{ID: "hung", Timeout: 20 * time.Millisecond}, delay: 5 * time.Second},
		&stubAdapter{src: config.SourceConfig{ID: "ok"}, items: []content.Item{{Title: "x", URL: "/x"}}},
	}
	started := time.Now()
	results := f.FetchAll(context.Background(), adapters, "")
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("timeout did not bound the batch, took %s", elapsed)
	}
	if results[0].Succeeded {
		t.Fatal("hung source should have timed out")
	}
	if !results[1].Succeeded {
		t.Fatal("sibling must be unaffected by the timeout")
	}
}
