// Package search merges the local content index with live external search
// into ranked, paginated result pages. The external leg is best-effort: when
// it fails or is rate-limited the service degrades to local-only results,
// and when both legs come up empty it falls back to synthetic results so a
// non-empty query never produces an empty page.
package search

import (
	"context"
	"log"
	"strings"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
	"github.com/opencivic/pulso/internal/fetch"
	"github.com/opencivic/pulso/internal/index"
	"github.com/opencivic/pulso/internal/rank"
	"github.com/opencivic/pulso/internal/ratelimit"
	"github.com/opencivic/pulso/internal/sources"
	"github.com/opencivic/pulso/internal/telemetry"
)

// Query is one search request. Constructed per request, never persisted.
type Query struct {
	Text     string
	Page     int
	PageSize int
	Category string
	SortKey  rank.Mode
}

// Result is the paginated search envelope.
type Result struct {
	Results         []content.Item `json:"results"`
	TotalResults    int            `json:"total_results"`
	TotalPages      int            `json:"total_pages"`
	CurrentPage     int            `json:"current_page"`
	HasNextPage     bool           `json:"has_next_page"`
	HasPreviousPage bool           `json:"has_previous_page"`
}

type Service struct {
	cfg      *config.Config
	index    *index.Index
	external []sources.Adapter
	fanout   *fetch.FanOut
	limiter  *ratelimit.Limiter
	ranker   *rank.Ranker
	tele     *telemetry.Telemetry
	logger   *log.Logger
}

// New wires the merge service. external should hold the web-search adapters
// in priority order; the local index is always consulted.
func New(cfg *config.Config, idx *index.Index, external []sources.Adapter, fanout *fetch.FanOut,
	limiter *ratelimit.Limiter, ranker *rank.Ranker, tele *telemetry.Telemetry) *Service {
	return &Service{
		cfg:      cfg,
		index:    idx,
		external: external,
		fanout:   fanout,
		limiter:  limiter,
		ranker:   ranker,
		tele:     tele,
		logger:   log.New(log.Writer(), "[SEARCH] ", log.LstdFlags),
	}
}

// Search runs the merge algorithm: local index plus best-effort external
// search, local-wins dedup, filters, boost, rank, deep-pagination cap,
// slice.
func (s *Service) Search(ctx context.Context, q Query) (Result, error) {
	q = s.normalize(q)
	if q.Text == "" {
		// an empty query is an empty result set, not an error
		return Result{Results: []content.Item{}, CurrentPage: q.Page, HasPreviousPage: q.Page > 1}, nil
	}

	local, err := s.index.Search(ctx, q.Text, s.cfg.Search.MaxResults)
	if err != nil {
		s.logger.Printf("local index query failed: %v", err)
		local = nil
	}
	external := s.externalResults(ctx, q.Text)

	// local database items precede external ones so they win dedup
	// collisions
	merged := content.DedupeItems(append(append([]content.Item{}, local...), external...))

	if q.Category != "" {
		filtered := merged[:0]
		for _, it := range merged {
			if strings.EqualFold(it.SourceCategory, q.Category) {
				filtered = append(filtered, it)
			}
		}
		merged = filtered
	}

	if len(merged) == 0 {
		merged = sources.FallbackResults(q.Text)
	}

	s.boostLocal(merged, local)
	merged = s.ranker.Rank(merged, q.SortKey)

	// deep-pagination cap applies before totalPages so pagination never
	// discovers results past it
	if len(merged) > s.cfg.Search.MaxResults {
		merged = merged[:s.cfg.Search.MaxResults]
	}

	return paginate(merged, q), nil
}

func (s *Service) normalize(q Query) Query {
	q.Text = strings.TrimSpace(q.Text)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = s.cfg.Search.DefaultPageSize
	}
	if q.SortKey == "" {
		q.SortKey = rank.ByRelevance
	}
	return q
}

// externalResults runs the rate-limit-gated external adapters. Any failure
// degrades to local-only results; nothing here is an error.
func (s *Service) externalResults(ctx context.Context, query string) []content.Item {
	var admitted []sources.Adapter
	for _, a := range s.external {
		src := a.Source()
		if src.Metered {
			if err := s.limiter.Check(src.ID); err != nil {
				if s.tele != nil {
					s.tele.ObserveRateLimited(src.ID)
				}
				s.logger.Printf("source %s rate limited, serving local results", src.ID)
				continue
			}
		}
		admitted = append(admitted, a)
	}
	if len(admitted) == 0 {
		return nil
	}
	var items []content.Item
	for _, res := range s.fanout.FetchAll(ctx, admitted, query) {
		if res.Succeeded {
			items = append(items, res.Items...)
		}
	}
	return items
}

// boostLocal applies the configured relevance boost to items that came from
// the local index, a tie-break that favors first-party content.
func (s *Service) boostLocal(items []content.Item, local []content.Item) {
	if len(local) == 0 {
		return
	}
	localIDs := make(map[string]struct{}, len(local))
	for _, it := range local {
		localIDs[it.ID] = struct{}{}
	}
	for i := range items {
		if _, ok := localIDs[items[i].ID]; ok {
			items[i].RelevanceScore += s.cfg.Ranking.LocalBoost
		}
	}
}

func paginate(items []content.Item, q Query) Result {
	total := len(items)
	totalPages := (total + q.PageSize - 1) / q.PageSize

	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	page := items[start:end]
	if page == nil {
		page = []content.Item{}
	}
	return Result{
		Results:         page,
		TotalResults:    total,
		TotalPages:      totalPages,
		CurrentPage:     q.Page,
		HasNextPage:     q.Page < totalPages,
		HasPreviousPage: q.Page > 1,
	}
}
