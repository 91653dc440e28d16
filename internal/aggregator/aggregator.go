// Package aggregator implements the consumer-facing aggregation operations
// on top of the fan-out fetcher, the TTL cache, the rate limiter and the
// local index. Partial upstream failure is normal operation here; the only
// user-visible error is the case where every source failed and no cache
// snapshot exists at all.
package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/cache"
	"github.com/opencivic/pulso/internal/content"
	"github.com/opencivic/pulso/internal/fetch"
	"github.com/opencivic/pulso/internal/index"
	"github.com/opencivic/pulso/internal/rank"
	"github.com/opencivic/pulso/internal/ratelimit"
	"github.com/opencivic/pulso/internal/sources"
	"github.com/opencivic/pulso/internal/telemetry"
)

// SourceStat reports one source's outcome for a single aggregation call.
type SourceStat struct {
	SourceID   string `json:"source_id"`
	Name       string `json:"name,omitempty"`
	Status     string `json:"status"` // ok, error, rate_limited
	Items      int    `json:"items"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewsResult is the aggregateNews envelope.
type NewsResult struct {
	Articles    []content.Item `json:"articles"`
	TotalCount  int            `json:"total_count"`
	SourceStats []SourceStat   `json:"source_stats"`
	Categories  map[string]int `json:"categories"`
	Cached      bool           `json:"cached"`
	CacheAgeMs  int64          `json:"cache_age_ms,omitempty"`
}

// VideosResult is the aggregateVideos envelope.
type VideosResult struct {
	Videos        []content.Item `json:"videos"`
	TotalCount    int            `json:"total_count"`
	CategoryStats map[string]int `json:"category_stats"`
	Cached        bool           `json:"cached"`
}

type Service struct {
	cfg      *config.Config
	adapters []sources.Adapter
	fanout   *fetch.FanOut
	store    cache.Store
	limiter  *ratelimit.Limiter
	ranker   *rank.Ranker
	index    *index.Index
	tele     *telemetry.Telemetry
	logger   *log.Logger
}

// New wires the aggregation service. One instance is created at startup and
// shared by all request handlers; there is no ambient global state.
func New(cfg *config.Config, adapters []sources.Adapter, fanout *fetch.FanOut, store cache.Store,
	limiter *ratelimit.Limiter, ranker *rank.Ranker, idx *index.Index, tele *telemetry.Telemetry) *Service {
	return &Service{
		cfg:      cfg,
		adapters: adapters,
		fanout:   fanout,
		store:    store,
		limiter:  limiter,
		ranker:   ranker,
		index:    idx,
		tele:     tele,
		logger:   log.New(log.Writer(), "[AGGREGATOR] ", log.LstdFlags),
	}
}

// Index exposes the local content index for the search service.
func (s *Service) Index() *index.Index { return s.index }

// Adapters returns the configured adapters in priority order.
func (s *Service) Adapters() []sources.Adapter { return s.adapters }

// AggregateNews fetches, normalizes, ranks and caches news across the
// configured sources. category filters items, sourceIDs restricts which
// sources are queried; both are optional.
func (s *Service) AggregateNews(ctx context.Context, limit int, category string, sourceIDs []string) (NewsResult, error) {
	if limit <= 0 {
		limit = s.cfg.Search.MaxResults
	}
	key := cache.Key("news", strconv.Itoa(limit), category, cache.Multi(sourceIDs))

	if entry, ok, _ := s.store.Get(ctx, key); ok {
		var cached NewsResult
		if err := json.Unmarshal(entry.Payload, &cached); err == nil {
			s.observeCache("hit")
			cached.Cached = true
			cached.CacheAgeMs = entry.Age(time.Now()).Milliseconds()
			return cached, nil
		}
	}
	s.observeCache("miss")

	adapters, limitedStats := s.admit(s.selectAdapters(sourceIDs, ""))
	results := s.fanout.FetchAll(ctx, adapters, category)

	stats := append(limitedStats, s.statsFor(adapters, results)...)
	if !anySucceeded(results) {
		if stale, ok := s.staleNews(ctx, key); ok {
			return stale, nil
		}
		return NewsResult{}, content.NewError(content.AggregateFailure, "",
			errors.New("all sources failed and no cached snapshot exists"))
	}

	s.capPerSource(results)
	items := content.Dedupe(results)
	if category != "" {
		items = filterCategory(items, category)
	}
	items = s.ranker.Rank(items, rank.ByTrending)
	if len(items) > limit {
		items = items[:limit]
	}

	result := NewsResult{
		Articles:    items,
		TotalCount:  len(items),
		SourceStats: stats,
		Categories:  countCategories(items),
	}
	s.finish(ctx, key, items, &result)
	return result, nil
}

// AggregateVideos runs the video adapters once per requested category and
// merges the outcomes. forceRefresh bypasses the cache read (not the write).
func (s *Service) AggregateVideos(ctx context.Context, categories []string, maxResults int, forceRefresh bool) (VideosResult, error) {
	if len(categories) == 0 {
		categories = []string{"General"}
	}
	if maxResults <= 0 {
		maxResults = s.cfg.Search.MaxPerSource
	}
	key := cache.Key("videos", strconv.Itoa(maxResults), cache.Multi(categories))

	if !forceRefresh {
		if entry, ok, _ := s.store.Get(ctx, key); ok {
			var cached VideosResult
			if err := json.Unmarshal(entry.Payload, &cached); err == nil {
				s.observeCache("hit")
				cached.Cached = true
				return cached, nil
			}
		}
		s.observeCache("miss")
	}

	adapters, _ := s.admit(s.selectAdapters(nil, "video"))
	var all []content.FetchResult
	for _, category := range categories {
		results := s.fanout.FetchAll(ctx, adapters, category)
		// items inherit the category they were searched under
		for i := range results {
			for j := range results[i].Items {
				results[i].Items[j].SourceCategory = category
			}
		}
		all = append(all, results...)
	}

	if !anySucceeded(all) {
		if entry, _, stale := s.store.Get(ctx, key); stale {
			var cached VideosResult
			if err := json.Unmarshal(entry.Payload, &cached); err == nil {
				s.observeCache("stale")
				cached.Cached = true
				return cached, nil
			}
		}
		return VideosResult{}, content.NewError(content.AggregateFailure, "",
			errors.New("all video sources failed and no cached snapshot exists"))
	}

	items := s.ranker.Rank(content.Dedupe(all), rank.ByTrending)
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	result := VideosResult{
		Videos:        items,
		TotalCount:    len(items),
		CategoryStats: countCategories(items),
	}
	if payload, err := json.Marshal(result); err == nil {
		if err := s.store.Set(ctx, key, payload, s.cfg.Cache.TTL); err != nil {
			s.logger.Printf("cache set failed: %v", err)
		}
	}
	if err := s.index.Upsert(items); err != nil {
		s.logger.Printf("index upsert failed: %v", err)
	}
	return result, nil
}

// ClearCache drops every cached snapshot.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.store.Invalidate(ctx, "")
}

// CacheStats reports cache size, keys and approximate payload bytes.
func (s *Service) CacheStats(ctx context.Context) (cache.Stats, error) {
	return s.store.Stats(ctx)
}

// selectAdapters filters the configured adapters by source id set and,
// when sourceType is non-empty, by source type.
func (s *Service) selectAdapters(sourceIDs []string, sourceType string) []sources.Adapter {
	wanted := make(map[string]struct{}, len(sourceIDs))
	for _, id := range sourceIDs {
		wanted[strings.ToLower(strings.TrimSpace(id))] = struct{}{}
	}
	var out []sources.Adapter
	for _, a := range s.adapters {
		src := a.Source()
		if sourceType != "" && src.Type != sourceType {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[strings.ToLower(src.ID)]; !ok {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// admit applies the sliding-window gate to metered sources. Limited sources
// are reported in the stats and skipped; they never fail the request.
func (s *Service) admit(adapters []sources.Adapter) ([]sources.Adapter, []SourceStat) {
	var admitted []sources.Adapter
	var limited []SourceStat
	for _, a := range adapters {
		src := a.Source()
		if src.Metered {
			if err := s.limiter.Check(src.ID); err != nil {
				if s.tele != nil {
					s.tele.ObserveRateLimited(src.ID)
				}
				retry := s.limiter.RetryAfter(src.ID)
				limited = append(limited, SourceStat{
					SourceID: src.ID,
					Name:     src.DisplayName,
					Status:   "rate_limited",
					Error:    "retry after " + retry.Round(time.Second).String(),
				})
				continue
			}
		}
		admitted = append(admitted, a)
	}
	return admitted, limited
}

func (s *Service) statsFor(adapters []sources.Adapter, results []content.FetchResult) []SourceStat {
	stats := make([]SourceStat, 0, len(results))
	for i, res := range results {
		stat := SourceStat{
			SourceID:   res.SourceID,
			Status:     "ok",
			Items:      len(res.Items),
			DurationMs: res.Duration.Milliseconds(),
		}
		if i < len(adapters) {
			stat.Name = adapters[i].Source().DisplayName
		}
		if !res.Succeeded {
			stat.Status = "error"
			if res.Err != nil {
				stat.Error = res.Err.Error()
			}
		}
		stats = append(stats, stat)
	}
	return stats
}

// staleNews serves the previous snapshot for key when one survives past its
// TTL. Stale beats empty when every upstream is down.
func (s *Service) staleNews(ctx context.Context, key string) (NewsResult, bool) {
	entry, _, stale := s.store.Get(ctx, key)
	if !stale {
		return NewsResult{}, false
	}
	var cached NewsResult
	if err := json.Unmarshal(entry.Payload, &cached); err != nil {
		return NewsResult{}, false
	}
	s.observeCache("stale")
	cached.Cached = true
	cached.CacheAgeMs = entry.Age(time.Now()).Milliseconds()
	return cached, true
}

// capPerSource truncates each source's contribution before deduplication so
// a single noisy feed cannot crowd out the rest.
func (s *Service) capPerSource(results []content.FetchResult) {
	max := s.cfg.Search.MaxPerSource
	if max <= 0 {
		return
	}
	for i := range results {
		if len(results[i].Items) > max {
			results[i].Items = results[i].Items[:max]
		}
	}
}

func (s *Service) finish(ctx context.Context, key string, items []content.Item, result *NewsResult) {
	if payload, err := json.Marshal(result); err == nil {
		if err := s.store.Set(ctx, key, payload, s.cfg.Cache.TTL); err != nil {
			s.logger.Printf("cache set failed: %v", err)
		}
	}
	if err := s.index.Upsert(items); err != nil {
		s.logger.Printf("index upsert failed: %v", err)
	}
}

func (s *Service) observeCache(outcome string) {
	if s.tele != nil {
		s.tele.ObserveCache(outcome)
	}
}

func anySucceeded(results []content.FetchResult) bool {
	for _, r := range results {
		if r.Succeeded {
			return true
		}
	}
	return false
}

func filterCategory(items []content.Item, category string) []content.Item {
	out := items[:0]
	for _, it := range items {
		if strings.EqualFold(it.SourceCategory, category) {
			out = append(out, it)
		}
	}
	return out
}

func countCategories(items []content.Item) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		cat := it.SourceCategory
		if cat == "" {
			cat = "General"
		}
		counts[cat]++
	}
	return counts
}
