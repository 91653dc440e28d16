package sources

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

const (
	defaultVideoSearchEndpoint  = "https://www.googleapis.com/youtube/v3/search"
	defaultVideoDetailsEndpoint = "https://www.googleapis.com/youtube/v3/videos"
)

// VideoAdapter searches a video platform and enriches hits with statistics
// and duration through a second, batched details call.
type VideoAdapter struct {
	src      config.SourceConfig
	cfg      config.VideoConfig
	client   *httpClient
	logger   *log.Logger
	fallback bool
}

func NewVideoAdapter(src config.SourceConfig, cfg config.VideoConfig) *VideoAdapter {
	if cfg.SearchEndpoint == "" {
		cfg.SearchEndpoint = defaultVideoSearchEndpoint
	}
	if cfg.DetailsEndpoint == "" {
		cfg.DetailsEndpoint = defaultVideoDetailsEndpoint
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = src.APIKey
		cfg.APIKey = apiKey
	}
	a := &VideoAdapter{
		src:    src,
		cfg:    cfg,
		client: newHTTPClient(src.Timeout, src.MaxRetries, src.RetryDelay),
		logger: log.New(log.Writer(), "[VIDEO] ", log.LstdFlags),
	}
	if apiKey == "" {
		// Degraded mode: serve deterministic sample videos instead of
		// failing every request. Logged once here, not per call.
		a.fallback = true
		a.logger.Printf("source %s: no API key configured, serving sample videos", src.ID)
	}
	return a
}

func (a *VideoAdapter) Source() config.SourceConfig { return a.src }

func (a *VideoAdapter) Fetch(ctx context.Context, query string) content.FetchResult {
	started := time.Now()
	if a.fallback {
		return success(a.src.ID, a.sampleVideos(query), started)
	}

	ids, items, err := a.search(ctx, query)
	if err != nil {
		return failure(a.src.ID, content.UpstreamUnavailable, err, started)
	}
	if len(ids) == 0 {
		return success(a.src.ID, nil, started)
	}
	if err := a.enrich(ctx, ids, items); err != nil {
		// Details are an enrichment; the search results are still usable.
		a.logger.Printf("source %s: details call failed: %v", a.src.ID, err)
	}

	out := make([]content.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, *items[id])
	}
	return success(a.src.ID, out, started)
}

type videoSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet videoSnippet `json:"snippet"`
	} `json:"items"`
}

type videoDetailsResponse struct {
	Items []struct {
		ID         string       `json:"id"`
		Snippet    videoSnippet `json:"snippet"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoSnippet struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  time.Time `json:"publishedAt"`
	Thumbnails   struct {
		High struct {
			URL string `json:"url"`
		} `json:"high"`
		Default struct {
			URL string `json:"url"`
		} `json:"default"`
	} `json:"thumbnails"`
}

func (a *VideoAdapter) search(ctx context.Context, query string) ([]string, map[string]*content.Item, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(a.cfg.MaxResults))
	params.Set("key", a.cfg.APIKey)

	var resp videoSearchResponse
	if err := a.client.doJSON(ctx, "GET", a.cfg.SearchEndpoint+"?"+params.Encode(), nil, nil, &resp); err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(resp.Items))
	items := make(map[string]*content.Item, len(resp.Items))
	for _, v := range resp.Items {
		if v.ID.VideoID == "" {
			continue
		}
		ids = append(ids, v.ID.VideoID)
		items[v.ID.VideoID] = a.itemFromSnippet(v.ID.VideoID, v.Snippet)
	}
	return ids, items, nil
}

// enrich performs the batched details call and fills in view/like counts and
// the formatted duration.
func (a *VideoAdapter) enrich(ctx context.Context, ids []string, items map[string]*content.Item) error {
	params := url.Values{}
	params.Set("part", "snippet,statistics,contentDetails")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", a.cfg.APIKey)

	var resp videoDetailsResponse
	if err := a.client.doJSON(ctx, "GET", a.cfg.DetailsEndpoint+"?"+params.Encode(), nil, nil, &resp); err != nil {
		return err
	}
	for _, v := range resp.Items {
		it, ok := items[v.ID]
		if !ok {
			continue
		}
		it.Views, _ = strconv.ParseInt(v.Statistics.ViewCount, 10, 64)
		it.Likes, _ = strconv.ParseInt(v.Statistics.LikeCount, 10, 64)
		it.Duration = FormatDuration(v.ContentDetails.Duration)
	}
	return nil
}

func (a *VideoAdapter) itemFromSnippet(videoID string, sn videoSnippet) *content.Item {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	image := sn.Thumbnails.High.URL
	if image == "" {
		image = sn.Thumbnails.Default.URL
	}
	return &content.Item{
		ID:             content.ItemID(a.src.ID, watchURL, sn.Title),
		Title:          content.Truncate(content.CollapseWhitespace(sn.Title), rssTitleMax),
		Summary:        content.Truncate(content.StripHTML(sn.Description), rssSummaryMax),
		URL:            watchURL,
		PublishedAt:    sn.PublishedAt,
		SourceID:       a.src.ID,
		SourceName:     sn.ChannelTitle,
		SourceCategory: a.src.Category,
		ImageURL:       image,
	}
}

// sampleVideos is the documented degradation path for a missing API key.
func (a *VideoAdapter) sampleVideos(query string) []content.Item {
	now := time.Now()
	out := make([]content.Item, 0, 3)
	for i, title := range []string{
		"Sesión del concejo municipal",
		"Rendición de cuentas trimestral",
		"Foro ciudadano: " + query,
	} {
		u := fmt.Sprintf("https://videos.example.org/sample/%d", i+1)
		out = append(out, content.Item{
			ID:             content.ItemID(a.src.ID, u, title),
			Title:          title,
			Summary:        "Contenido de muestra disponible sin clave de API.",
			URL:            u,
			PublishedAt:    now.Add(-time.Duration(i+1) * time.Hour),
			SourceID:       a.src.ID,
			SourceName:     a.src.DisplayName,
			SourceCategory: a.src.Category,
			Duration:       "12:34",
			Views:          int64(1000 * (i + 1)),
		})
	}
	return out
}

var isoDurationRE = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatDuration converts an ISO-8601 period like PT1H2M3S into 1:02:03, or
// PT4M5S into 4:05. Unrecognized input comes back empty.
func FormatDuration(iso string) string {
	m := isoDurationRE.FindStringSubmatch(iso)
	if m == nil {
		return ""
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, min, sec)
	}
	return fmt.Sprintf("%d:%02d", min, sec)
}
