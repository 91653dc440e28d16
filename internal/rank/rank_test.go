package rank

import (
	"testing"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

func testRanker() *Ranker {
	return New(config.RankingConfig{TrendingBoost: 1.2, LocalBoost: 10, LocalCategories: []string{"Local"}}.Normalize())
}

func TestRankByRelevance(t *testing.T) {
	items := []content.Item{
		{Title: "bajo", RelevanceScore: 50},
		{Title: "alto", RelevanceScore: 100},
		{Title: "medio", RelevanceScore: 75},
	}
	got := testRanker().Rank(items, ByRelevance)
	if got[0].Title != "alto" || got[2].Title != "bajo" {
		t.Fatalf("relevance order wrong: %v", titles(got))
	}
}

func TestRankByDateZeroDatesLast(t *testing.T) {
	now := time.Now()
	items := []content.Item{
		{Title: "sin fecha"},
		{Title: "ayer", PublishedAt: now.Add(-24 * time.Hour)},
		{Title: "hoy", PublishedAt: now},
	}
	got := testRanker().Rank(items, ByDate)
	if got[0].Title != "hoy" || got[1].Title != "ayer" || got[2].Title != "sin fecha" {
		t.Fatalf("date order wrong: %v", titles(got))
	}
}

func TestRankByPopularity(t *testing.T) {
	items := []content.Item{
		{Title: "poco", Views: 10, Likes: 1},
		{Title: "mucho", Views: 1000, Likes: 50},
	}
	got := testRanker().Rank(items, ByPopularity)
	if got[0].Title != "mucho" {
		t.Fatalf("popularity order wrong: %v", titles(got))
	}
}

func TestRankStableTies(t *testing.T) {
	items := []content.Item{
		{Title: "primero", RelevanceScore: 80},
		{Title: "segundo", RelevanceScore: 80},
		{Title: "tercero", RelevanceScore: 80},
	}
	got := testRanker().Rank(items, ByRelevance)
	if got[0].Title != "primero" || got[1].Title != "segundo" || got[2].Title != "tercero" {
		t.Fatalf("ties must keep original order: %v", titles(got))
	}
}

func TestTrendingScoreBounds(t *testing.T) {
	r := testRanker()
	now := time.Now()

	fresh := content.Item{PublishedAt: now, SourceCategory: "Local"}
	if score := r.TrendingScore(fresh, now); score < 1.19 || score > 1.2 {
		t.Fatalf("fresh local item should approach the boost ceiling, got %v", score)
	}

	foreign := content.Item{PublishedAt: now, SourceCategory: "Internacional"}
	if score := r.TrendingScore(foreign, now); score < 0.99 || score > 1.0 {
		t.Fatalf("non-local boost must be 1.0, got %v", score)
	}

	old := content.Item{PublishedAt: now.Add(-25 * time.Hour), SourceCategory: "Local"}
	if score := r.TrendingScore(old, now); score != 0 {
		t.Fatalf("older than 24h must score zero, got %v", score)
	}

	undated := content.Item{SourceCategory: "Local"}
	if score := r.TrendingScore(undated, now); score != 0 {
		t.Fatalf("undated items must score zero, got %v", score)
	}
}

func TestRankByTrendingRecomputesScores(t *testing.T) {
	now := time.Now()
	items := []content.Item{
		{Title: "viejo", PublishedAt: now.Add(-20 * time.Hour), SourceCategory: "Local", TrendingScore: 99},
		{Title: "nuevo", PublishedAt: now.Add(-1 * time.Hour), SourceCategory: "General"},
	}
	got := testRanker().Rank(items, ByTrending)
	if got[0].Title != "nuevo" {
		t.Fatalf("stale precomputed scores must be ignored: %v", titles(got))
	}
	for _, it := range got {
		if it.TrendingScore < 0 || it.TrendingScore > 1.2 {
			t.Fatalf("trending score out of bounds: %v", it.TrendingScore)
		}
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("date") != ByDate || ParseMode("popularity") != ByPopularity {
		t.Fatal("known modes should parse")
	}
	if ParseMode("bogus") != ByRelevance || ParseMode("") != ByRelevance {
		t.Fatal("unknown modes default to relevance")
	}
}

func titles(items []content.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
