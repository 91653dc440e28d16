// Package rank sorts canonical items by the requested mode. All sorts are
// stable, so ties keep their original (dedup/priority) order.
package rank

import (
	"sort"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

type Mode string

const (
	ByRelevance  Mode = "relevance"
	ByDate       Mode = "date"
	ByPopularity Mode = "popularity"
	ByTrending   Mode = "trending"
)

// ParseMode maps a request parameter onto a Mode, defaulting to relevance.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ByDate, ByPopularity, ByTrending, ByRelevance:
		return Mode(s)
	default:
		return ByRelevance
	}
}

type Ranker struct {
	cfg   config.RankingConfig
	local map[string]struct{}
	now   func() time.Time
}

func New(cfg config.RankingConfig) *Ranker {
	local := make(map[string]struct{}, len(cfg.LocalCategories))
	for _, c := range cfg.LocalCategories {
		local[c] = struct{}{}
	}
	return &Ranker{cfg: cfg, local: local, now: time.Now}
}

// Rank sorts items in place by mode and returns the slice. Trending mode
// recomputes TrendingScore on every item first.
func (r *Ranker) Rank(items []content.Item, mode Mode) []content.Item {
	switch mode {
	case ByDate:
		sort.SliceStable(items, func(i, j int) bool {
			// unparseable/zero dates sort last
			if items[i].PublishedAt.IsZero() != items[j].PublishedAt.IsZero() {
				return !items[i].PublishedAt.IsZero()
			}
			return items[i].PublishedAt.After(items[j].PublishedAt)
		})
	case ByPopularity:
		sort.SliceStable(items, func(i, j int) bool {
			return engagement(items[i]) > engagement(items[j])
		})
	case ByTrending:
		now := r.now()
		for i := range items {
			items[i].TrendingScore = r.TrendingScore(items[i], now)
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].TrendingScore > items[j].TrendingScore
		})
	default: // relevance
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].RelevanceScore > items[j].RelevanceScore
		})
	}
	return items
}

// TrendingScore is recencyFactor * categoryBoost: linear decay to zero over
// 24 hours, boosted for configured local/high-priority categories. The
// result stays within [0, TrendingBoost].
func (r *Ranker) TrendingScore(it content.Item, now time.Time) float64 {
	if it.PublishedAt.IsZero() {
		return 0
	}
	ageHours := now.Sub(it.PublishedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	recency := (24 - ageHours) / 24
	if recency < 0 {
		recency = 0
	}
	boost := 1.0
	if _, ok := r.local[it.SourceCategory]; ok {
		boost = r.cfg.TrendingBoost
	}
	return recency * boost
}

func engagement(it content.Item) int64 {
	return it.Views + it.Likes
}
