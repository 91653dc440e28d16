package content

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Item is the canonical content record every adapter normalizes into.
type Item struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	URL            string    `json:"url"`
	PublishedAt    time.Time `json:"published_at"`
	SourceID       string    `json:"source_id"`
	SourceName     string    `json:"source_name,omitempty"`
	SourceCategory string    `json:"source_category"`
	Tags           []string  `json:"tags,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`

	// Engagement signals, present only for sources that report them.
	Views int64 `json:"views,omitempty"`
	Likes int64 `json:"likes,omitempty"`
	// Duration is a pre-formatted H:MM:SS / M:SS string for video items.
	Duration string `json:"duration,omitempty"`

	// Derived scores, recomputed per query / ranking pass.
	RelevanceScore float64 `json:"relevance_score"`
	TrendingScore  float64 `json:"trending_score"`
}

// ItemID derives the stable item id from the source id and the dedup key.
// Re-fetching the same item always yields the same id, which is what makes
// cross-call deduplication work.
func ItemID(sourceID, url, title string) string {
	key := url
	if key == "" {
		key = NormalizeTitle(title)
	}
	h := sha1.Sum([]byte(sourceID + "|" + key))
	return hex.EncodeToString(h[:])
}

// DedupKey returns the identifier used to detect that two items represent the
// same real-world content: the URL when present, otherwise the normalized
// title. Empty means the item is malformed and should be dropped.
func (it Item) DedupKey() string {
	if it.URL != "" {
		return it.URL
	}
	return NormalizeTitle(it.Title)
}

// FetchResult is the per-source outcome of one fan-out call.
type FetchResult struct {
	SourceID  string        `json:"source_id"`
	Items     []Item        `json:"items"`
	Succeeded bool          `json:"succeeded"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}
