package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opencivic/pulso/config"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		iso  string
		want string
	}{
		{"PT1H2M3S", "1:02:03"},
		{"PT4M5S", "4:05"},
		{"PT45S", "0:45"},
		{"PT2H", "2:00:00"},
		{"PT10M", "10:00"},
		{"garbage", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := FormatDuration(c.iso); got != c.want {
			t.Fatalf("FormatDuration(%q) = %q, want %q", c.iso, got, c.want)
		}
	}
}

func TestVideoAdapterTwoCallFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "cabildo" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": map[string]string{"videoId": "vid-1"}, "snippet": map[string]any{
					"title": "Cabildo abierto", "channelTitle": "Canal Cívico",
					"publishedAt": time.Now().UTC().Format(time.RFC3339),
				}},
				{"id": map[string]string{"videoId": "vid-2"}, "snippet": map[string]any{
					"title": "Sesión ordinaria", "channelTitle": "Canal Cívico",
				}},
			},
		})
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("id")
		if !strings.Contains(ids, "vid-1") || !strings.Contains(ids, "vid-2") {
			t.Errorf("details call should batch ids, got %q", ids)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": "vid-1",
					"statistics":     map[string]string{"viewCount": "1234", "likeCount": "56"},
					"contentDetails": map[string]string{"duration": "PT1H2M3S"}},
				{"id": "vid-2",
					"statistics":     map[string]string{"viewCount": "99", "likeCount": "1"},
					"contentDetails": map[string]string{"duration": "PT4M5S"}},
			},
		})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	src := config.SourceConfig{ID: "videos", Type: "video", Category: "Local", Timeout: 2 * time.Second, Enabled: true}
	a := NewVideoAdapter(src, config.VideoConfig{
		APIKey:          "k",
		SearchEndpoint:  ts.URL + "/search",
		DetailsEndpoint: ts.URL + "/videos",
	})
	res := a.Fetch(context.Background(), "cabildo")
	if !res.Succeeded {
		t.Fatalf("fetch failed: %v", res.Err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(res.Items))
	}
	first := res.Items[0]
	if first.Views != 1234 || first.Likes != 56 {
		t.Fatalf("statistics not enriched: views=%d likes=%d", first.Views, first.Likes)
	}
	if first.Duration != "1:02:03" {
		t.Fatalf("duration not formatted: %q", first.Duration)
	}
	if res.Items[1].Duration != "4:05" {
		t.Fatalf("short duration not formatted: %q", res.Items[1].Duration)
	}
	if first.URL == "" || first.ID == "" {
		t.Fatal("expected watch url and stable id")
	}
}

func TestVideoAdapterMissingKeyServesSamples(t *testing.T) {
	src := config.SourceConfig{ID: "videos", Type: "video", DisplayName: "Videos", Enabled: true}
	a := NewVideoAdapter(src, config.VideoConfig{})
	res := a.Fetch(context.Background(), "presupuesto")
	if !res.Succeeded {
		t.Fatalf("fallback mode must not fail: %v", res.Err)
	}
	if len(res.Items) == 0 {
		t.Fatal("fallback mode should serve sample videos")
	}
	for _, it := range res.Items {
		if it.SourceID != "videos" {
			t.Fatalf("sample video carries wrong source id %q", it.SourceID)
		}
	}
}
