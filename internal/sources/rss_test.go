package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/content"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Noticias Cívicas</title>
    <item>
      <title>Reforma   X
aprobada</title>
      <link>https://noticias.example.org/reforma-x</link>
      <description><![CDATA[<p>El concejo aprobó la <b>reforma</b>.</p>]]></description>
      <pubDate>Mon, 02 Jan 2023 15:04:05 GMT</pubDate>
      <enclosure url="https://cdn.example.org/reforma.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title>Convocatoria al cabildo</title>
      <link>https://noticias.example.org/cabildo</link>
      <description><![CDATA[Detalles <img src="https://cdn.example.org/inline.png"> del cabildo abierto.]]></description>
    </item>
  </channel>
</rss>`

func rssSource(endpoint string) config.SourceConfig {
	return config.SourceConfig{
		ID:          "noticias",
		DisplayName: "Noticias Cívicas",
		Type:        "rss",
		Endpoint:    endpoint,
		Category:    "Local",
		Timeout:     2 * time.Second,
		Enabled:     true,
	}
}

func TestRSSAdapterFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer ts.Close()

	a := NewRSSAdapter(rssSource(ts.URL))
	res := a.Fetch(context.Background(), "")
	if !res.Succeeded {
		t.Fatalf("fetch failed: %v", res.Err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}

	first := res.Items[0]
	if first.Title != "Reforma X aprobada" {
		t.Fatalf("title not cleaned: %q", first.Title)
	}
	if first.Summary != "El concejo aprobó la reforma." {
		t.Fatalf("summary not stripped: %q", first.Summary)
	}
	if first.ImageURL != "https://cdn.example.org/reforma.jpg" {
		t.Fatalf("enclosure image should win, got %q", first.ImageURL)
	}
	if first.PublishedAt.IsZero() {
		t.Fatal("expected parsed pubDate")
	}
	if first.SourceCategory != "Local" {
		t.Fatalf("expected source category Local, got %q", first.SourceCategory)
	}

	second := res.Items[1]
	if second.ImageURL != "https://cdn.example.org/inline.png" {
		t.Fatalf("inline img fallback failed, got %q", second.ImageURL)
	}
	if !second.PublishedAt.IsZero() {
		t.Fatal("missing pubDate should stay zero for the ranker to sort last")
	}
}

func TestRSSAdapterFilterKeywords(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer ts.Close()

	src := rssSource(ts.URL)
	src.FilterKeywords = []string{"cabildo"}
	a := NewRSSAdapter(src)
	res := a.Fetch(context.Background(), "")
	if !res.Succeeded {
		t.Fatalf("fetch failed: %v", res.Err)
	}
	if len(res.Items) != 1 || res.Items[0].URL != "https://noticias.example.org/cabildo" {
		t.Fatalf("filter keywords should keep only the cabildo item, got %+v", res.Items)
	}
}

func TestRSSAdapterUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	a := NewRSSAdapter(rssSource(ts.URL))
	res := a.Fetch(context.Background(), "")
	if res.Succeeded {
		t.Fatal("expected failure on 502")
	}
	if kind := content.KindOf(res.Err); kind != content.UpstreamUnavailable {
		t.Fatalf("expected UpstreamUnavailable, got %q", kind)
	}
}

func TestRSSAdapterParseFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not xml"))
	}))
	defer ts.Close()

	a := NewRSSAdapter(rssSource(ts.URL))
	res := a.Fetch(context.Background(), "")
	if res.Succeeded {
		t.Fatal("expected parse failure")
	}
	if kind := content.KindOf(res.Err); kind != content.ParseFailure {
		t.Fatalf("expected ParseFailure, got %q", kind)
	}
}
