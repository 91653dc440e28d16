package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/aggregator"
	"github.com/opencivic/pulso/internal/cache"
	"github.com/opencivic/pulso/internal/content"
	"github.com/opencivic/pulso/internal/fetch"
	"github.com/opencivic/pulso/internal/index"
	"github.com/opencivic/pulso/internal/rank"
	"github.com/opencivic/pulso/internal/ratelimit"
	"github.com/opencivic/pulso/internal/search"
	"github.com/opencivic/pulso/internal/sources"
	"github.com/opencivic/pulso/internal/telemetry"
)

// Run builds the service graph from config and serves the HTTP API until
// the listener fails.
func Run(cfg *appconfig.Config) error {
	ctx := context.Background()

	// Initialize shared dependencies (top-level DI)
	tele := telemetry.New(prometheus.DefaultRegisterer)

	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		rs, err := cache.NewRedisStore(ctx, cfg.Cache.Redis)
		if err != nil {
			return err
		}
		store = rs
	} else {
		store = cache.NewMemoryStore()
	}

	idx, err := index.New()
	if err != nil {
		return err
	}

	adapters := sources.Build(cfg, nil)
	fanout := fetch.NewFanOut(tele)
	limiter := ratelimit.New(cfg.RateLimit)
	ranker := rank.New(cfg.Ranking)

	agg := aggregator.New(cfg, adapters, fanout, store, limiter, ranker, idx, tele)

	var external []sources.Adapter
	for _, a := range adapters {
		if a.Source().Type == "web_search" {
			external = append(external, a)
		}
	}
	searcher := search.New(cfg, idx, external, fanout, limiter, ranker, tele)

	sched := &Scheduler{Agg: agg, Cron: cfg.Server.RefreshCron, Stop: make(chan struct{})}
	sched.Start()
	defer close(sched.Stop)

	e := newEcho()
	h := &Handler{Agg: agg, Search: searcher}
	h.Register(e.Group("/api"))

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho configures the echo instance: JSON error handler, CORS, recovery,
// health and metrics endpoints.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		if content.KindOf(err) == content.AggregateFailure {
			// the one condition that surfaces to users; clients show a
			// retry affordance on 503
			code = http.StatusServiceUnavailable
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
