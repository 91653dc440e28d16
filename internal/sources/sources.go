package sources

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

// Adapter translates one upstream's native response shape into canonical
// items. Fetch never returns an error: every upstream failure (network,
// parse, HTTP status) is captured in the FetchResult so that callers have a
// single path to handle.
type Adapter interface {
	Source() config.SourceConfig
	Fetch(ctx context.Context, query string) content.FetchResult
}

// New builds the adapter for a source config.
func New(src config.SourceConfig, cfg *config.Config) (Adapter, error) {
	switch src.Type {
	case "rss":
		return NewRSSAdapter(src), nil
	case "video":
		return NewVideoAdapter(src, cfg.Video), nil
	case "web_search":
		return NewWebSearchAdapter(src, cfg.WebSearch), nil
	default:
		return nil, content.NewError(content.ConfigurationError, src.ID,
			fmt.Errorf("unknown source type %q", src.Type))
	}
}

// Build constructs adapters for every enabled source in priority order.
// A misconfigured source is logged and skipped rather than failing startup.
func Build(cfg *config.Config, logger *log.Logger) []Adapter {
	if logger == nil {
		logger = log.New(log.Writer(), "[SOURCES] ", log.LstdFlags)
	}
	var out []Adapter
	for _, src := range cfg.EnabledSources() {
		a, err := New(src, cfg)
		if err != nil {
			logger.Printf("skipping source %s: %v", src.ID, err)
			continue
		}
		out = append(out, a)
	}
	return out
}

// failure wraps an error into the standard failed FetchResult shape.
func failure(sourceID string, kind content.ErrorKind, err error, started time.Time) content.FetchResult {
	return content.FetchResult{
		SourceID:  sourceID,
		Succeeded: false,
		Err:       content.NewError(kind, sourceID, err),
		Duration:  time.Since(started),
	}
}

// success wraps items into the standard succeeded FetchResult shape.
func success(sourceID string, items []content.Item, started time.Time) content.FetchResult {
	return content.FetchResult{
		SourceID:  sourceID,
		Items:     items,
		Succeeded: true,
		Duration:  time.Since(started),
	}
}
