package sources

import (
	"context"
	"strings"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

const defaultWebSearchEndpoint = "https://google.serper.dev/search"

// relevance decays with result position: 100 at the top, -5 per rank,
// floored at 50.
const (
	webSearchTopScore   = 100.0
	webSearchRankDecay  = 5.0
	webSearchFloorScore = 50.0
)

// categoryKeywords maps a category to the terms that signal it. Matching is
// first-category-wins over the item's title plus snippet.
var categoryKeywords = []struct {
	Category string
	Terms    []string
}{
	{"Política", []string{"gobierno", "elección", "elecciones", "congreso", "asamblea", "presidente", "alcalde", "reforma", "ley", "decreto", "political", "government", "election"}},
	{"Seguridad", []string{"policía", "crimen", "seguridad", "delito", "violencia", "homicidio", "secuestro", "police", "security", "crime"}},
	{"Tecnología", []string{"tecnología", "software", "internet", "digital", "ciberseguridad", "aplicación", "plataforma", "tech", "technology", "startup"}},
	{"Economía", []string{"economía", "inflación", "empleo", "impuesto", "presupuesto", "comercio", "banco", "inversión", "economy", "inflation", "market"}},
	{"Social", []string{"educación", "salud", "comunidad", "cultura", "vivienda", "protesta", "marcha", "social", "health", "education"}},
}

// WebSearchAdapter maps external web-search hits into canonical items with a
// position-derived relevance score and an inferred category.
type WebSearchAdapter struct {
	src    config.SourceConfig
	cfg    config.WebSearchConfig
	client *httpClient
}

func NewWebSearchAdapter(src config.SourceConfig, cfg config.WebSearchConfig) *WebSearchAdapter {
	if cfg.Endpoint == "" {
		if src.Endpoint != "" {
			cfg.Endpoint = src.Endpoint
		} else {
			cfg.Endpoint = defaultWebSearchEndpoint
		}
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.APIKey == "" {
		cfg.APIKey = src.APIKey
	}
	return &WebSearchAdapter{
		src:    src,
		cfg:    cfg,
		client: newHTTPClient(src.Timeout, src.MaxRetries, src.RetryDelay),
	}
}

func (a *WebSearchAdapter) Source() config.SourceConfig { return a.src }

func (a *WebSearchAdapter) Fetch(ctx context.Context, query string) content.FetchResult {
	started := time.Now()
	if strings.TrimSpace(query) == "" {
		return success(a.src.ID, nil, started)
	}

	payload := map[string]any{"q": query, "num": a.cfg.MaxResults}
	headers := map[string]string{"X-API-KEY": a.cfg.APIKey}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Date    string `json:"date"`
		} `json:"organic"`
	}
	if err := a.client.doJSON(ctx, "POST", a.cfg.Endpoint, headers, payload, &raw); err != nil {
		return failure(a.src.ID, content.UpstreamUnavailable, err, started)
	}

	items := make([]content.Item, 0, len(raw.Organic))
	for i, hit := range raw.Organic {
		if i >= a.cfg.MaxResults {
			break
		}
		title := content.Truncate(content.CollapseWhitespace(hit.Title), rssTitleMax)
		summary := content.Truncate(content.StripHTML(hit.Snippet), rssSummaryMax)
		items = append(items, content.Item{
			ID:             content.ItemID(a.src.ID, hit.Link, title),
			Title:          title,
			Summary:        summary,
			URL:            hit.Link,
			PublishedAt:    parseHitDate(hit.Date),
			SourceID:       a.src.ID,
			SourceName:     a.src.DisplayName,
			SourceCategory: InferCategory(hit.Title + " " + hit.Snippet),
			RelevanceScore: RankScore(i),
		})
	}
	return success(a.src.ID, items, started)
}

// RankScore converts a zero-based result position into a relevance score.
func RankScore(rank int) float64 {
	score := webSearchTopScore - webSearchRankDecay*float64(rank)
	if score < webSearchFloorScore {
		return webSearchFloorScore
	}
	return score
}

// InferCategory matches text against the fixed keyword table; the first
// category with any matching term wins, else "General".
func InferCategory(text string) string {
	lowered := strings.ToLower(text)
	for _, cat := range categoryKeywords {
		for _, term := range cat.Terms {
			if strings.Contains(lowered, term) {
				return cat.Category
			}
		}
	}
	return "General"
}

func parseHitDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
