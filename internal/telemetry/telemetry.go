// Package telemetry exposes prometheus collectors for source health and
// cache behavior. One instance is created at startup and shared.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Telemetry struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchItems    *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

// New registers the collectors on reg. Passing prometheus.DefaultRegisterer
// wires them into the default /metrics handler.
func New(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulso_source_fetch_total",
			Help: "Fan-out fetches per source and outcome.",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulso_source_fetch_duration_seconds",
			Help:    "Duration of per-source fetches.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		fetchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulso_source_items_total",
			Help: "Items returned per source.",
		}, []string{"source"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulso_cache_requests_total",
			Help: "Cache lookups by outcome (hit, miss, stale).",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulso_rate_limited_total",
			Help: "Outbound calls rejected by the sliding-window limiter.",
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(t.fetchTotal, t.fetchDuration, t.fetchItems, t.cacheHits, t.rateLimited)
	}
	return t
}

func (t *Telemetry) ObserveFetch(sourceID string, succeeded bool, d time.Duration, items int) {
	outcome := "ok"
	if !succeeded {
		outcome = "error"
	}
	t.fetchTotal.WithLabelValues(sourceID, outcome).Inc()
	t.fetchDuration.WithLabelValues(sourceID).Observe(d.Seconds())
	if items > 0 {
		t.fetchItems.WithLabelValues(sourceID).Add(float64(items))
	}
}

func (t *Telemetry) ObserveCache(outcome string) {
	t.cacheHits.WithLabelValues(outcome).Inc()
}

func (t *Telemetry) ObserveRateLimited(sourceID string) {
	t.rateLimited.WithLabelValues(sourceID).Inc()
}
