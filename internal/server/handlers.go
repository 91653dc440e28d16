package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/opencivic/pulso/internal/aggregator"
	"github.com/opencivic/pulso/internal/rank"
	"github.com/opencivic/pulso/internal/search"
)

// Handler exposes the aggregation and search operations over HTTP.
type Handler struct {
	Agg    *aggregator.Service
	Search *search.Service
}

// Register mounts the API endpoints under the provided group.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/news", h.news)
	g.GET("/videos", h.videos)
	g.GET("/search", h.search)
	g.DELETE("/cache", h.clearCache)
	g.GET("/cache/stats", h.cacheStats)
}

// news aggregates articles across the configured sources.
//
//	@Summary  Aggregated news
//	@Tags     content
//	@Param    limit    query int    false "max articles"
//	@Param    category query string false "category filter"
//	@Param    sources  query string false "comma-separated source ids"
//	@Produce  json
//	@Success  200 {object} aggregator.NewsResult
//	@Router   /api/news [get]
func (h *Handler) news(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	category := c.QueryParam("category")
	sourceIDs := splitCSV(c.QueryParam("sources"))

	result, err := h.Agg.AggregateNews(c.Request().Context(), limit, category, sourceIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// videos aggregates videos for the requested categories.
//
//	@Summary  Aggregated videos
//	@Tags     content
//	@Param    categories query string false "comma-separated categories"
//	@Param    max        query int    false "max videos"
//	@Param    refresh    query bool   false "bypass the cache read"
//	@Produce  json
//	@Success  200 {object} aggregator.VideosResult
//	@Router   /api/videos [get]
func (h *Handler) videos(c echo.Context) error {
	categories := splitCSV(c.QueryParam("categories"))
	max, _ := strconv.Atoi(c.QueryParam("max"))
	refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))

	result, err := h.Agg.AggregateVideos(c.Request().Context(), categories, max, refresh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// search merges local and external results into one ranked page.
//
//	@Summary  Paginated content search
//	@Tags     content
//	@Param    q         query string true  "query text"
//	@Param    page      query int    false "1-based page"
//	@Param    page_size query int    false "results per page"
//	@Param    category  query string false "category filter"
//	@Param    sort      query string false "relevance|date|popularity|trending"
//	@Produce  json
//	@Success  200 {object} search.Result
//	@Router   /api/search [get]
func (h *Handler) search(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	q := search.Query{
		Text:     c.QueryParam("q"),
		Page:     page,
		PageSize: pageSize,
		Category: c.QueryParam("category"),
		SortKey:  rank.ParseMode(c.QueryParam("sort")),
	}
	result, err := h.Search.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// clearCache drops all cached snapshots.
//
//	@Summary  Clear the result cache
//	@Tags     ops
//	@Success  204
//	@Router   /api/cache [delete]
func (h *Handler) clearCache(c echo.Context) error {
	if err := h.Agg.ClearCache(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// cacheStats reports cache size, keys and approximate bytes.
//
//	@Summary  Cache statistics
//	@Tags     ops
//	@Produce  json
//	@Success  200 {object} cache.Stats
//	@Router   /api/cache/stats [get]
func (h *Handler) cacheStats(c echo.Context) error {
	stats, err := h.Agg.CacheStats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
