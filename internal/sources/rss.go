package sources

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

const (
	rssTitleMax   = 200
	rssSummaryMax = 300
)

var imgSrcRE = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// RSSAdapter fetches and normalizes one RSS/Atom feed.
type RSSAdapter struct {
	src    config.SourceConfig
	client *httpClient
	parser *gofeed.Parser
}

func NewRSSAdapter(src config.SourceConfig) *RSSAdapter {
	return &RSSAdapter{
		src:    src,
		client: newHTTPClient(src.Timeout, src.MaxRetries, src.RetryDelay),
		parser: gofeed.NewParser(),
	}
}

func (a *RSSAdapter) Source() config.SourceConfig { return a.src }

func (a *RSSAdapter) Fetch(ctx context.Context, query string) content.FetchResult {
	started := time.Now()

	body, err := a.client.get(ctx, a.src.Endpoint, map[string]string{"Accept": "application/rss+xml, application/xml"})
	if err != nil {
		return failure(a.src.ID, content.UpstreamUnavailable, err, started)
	}
	feed, err := a.parser.ParseString(string(body))
	if err != nil {
		return failure(a.src.ID, content.ParseFailure, err, started)
	}

	items := make([]content.Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		if !a.matchesFilter(fi) {
			continue
		}
		title := content.Truncate(content.CollapseWhitespace(fi.Title), rssTitleMax)
		desc := fi.Description
		if desc == "" {
			desc = fi.Content
		}
		summary := content.Truncate(content.StripHTML(desc), rssSummaryMax)

		var published time.Time
		if fi.PublishedParsed != nil {
			published = *fi.PublishedParsed
		} else if fi.UpdatedParsed != nil {
			published = *fi.UpdatedParsed
		}

		items = append(items, content.Item{
			ID:             content.ItemID(a.src.ID, fi.Link, title),
			Title:          title,
			Summary:        summary,
			URL:            fi.Link,
			PublishedAt:    published,
			SourceID:       a.src.ID,
			SourceName:     a.src.DisplayName,
			SourceCategory: a.src.Category,
			Tags:           fi.Categories,
			ImageURL:       feedImage(fi),
		})
	}
	return success(a.src.ID, items, started)
}

// matchesFilter keeps an item when no filter keywords are configured or any
// keyword appears in the title or description (case-insensitive).
func (a *RSSAdapter) matchesFilter(fi *gofeed.Item) bool {
	if len(a.src.FilterKeywords) == 0 {
		return true
	}
	haystack := strings.ToLower(fi.Title + " " + fi.Description)
	for _, kw := range a.src.FilterKeywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// feedImage resolves an item image by trying, in order: an enclosure with an
// image mime type, media:content, media:thumbnail, then the first inline
// <img src> in the body. First match wins.
func feedImage(fi *gofeed.Item) string {
	for _, enc := range fi.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	if media, ok := fi.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, ext := range media[name] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}
	body := fi.Description
	if body == "" {
		body = fi.Content
	}
	if m := imgSrcRE.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}
