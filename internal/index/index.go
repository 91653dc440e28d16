// Package index is the local content database: an in-memory bleve index
// over every item the aggregator has seen this process lifetime, plus the
// item metadata needed to reconstruct full records from hits.
package index

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/opencivic/pulso/internal/content"
)

type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
	meta  map[string]content.Item
}

// indexDoc is the searchable projection of an item.
type indexDoc struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, meta: make(map[string]content.Item)}, nil
}

// Upsert indexes items by their stable id; re-fetched items overwrite their
// previous copy instead of duplicating.
func (x *Index) Upsert(items []content.Item) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		x.meta[it.ID] = it
		doc := indexDoc{Title: it.Title, Summary: it.Summary, Category: it.SourceCategory, Tags: it.Tags}
		if err := x.bleve.Index(it.ID, doc); err != nil {
			return err
		}
	}
	return nil
}

// Search returns up to limit items matching the query string, best first.
// RelevanceScore is filled from the bleve score scaled into the same 0-100
// range the web-search adapter uses, so merged ranking compares like with
// like.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]content.Item, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)

	x.mu.RLock()
	defer x.mu.RUnlock()
	res, err := x.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	var out []content.Item
	maxScore := res.MaxScore
	for _, hit := range res.Hits {
		it, ok := x.meta[hit.ID]
		if !ok {
			continue
		}
		if maxScore > 0 {
			it.RelevanceScore = 100 * hit.Score / maxScore
		}
		out = append(out, it)
	}
	return out, nil
}

// Count reports how many items the index holds.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.meta)
}
