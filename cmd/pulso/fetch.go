package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/opencivic/pulso/config"
	"github.com/opencivic/pulso/internal/aggregator"
	"github.com/opencivic/pulso/internal/cache"
	"github.com/opencivic/pulso/internal/fetch"
	"github.com/opencivic/pulso/internal/index"
	"github.com/opencivic/pulso/internal/rank"
	"github.com/opencivic/pulso/internal/ratelimit"
	"github.com/opencivic/pulso/internal/sources"
	"github.com/opencivic/pulso/internal/telemetry"
)

// fetchCMD runs one aggregation pass and prints the envelope, useful for
// probing source configs without the server.
func fetchCMD() *cobra.Command {
	var cfgPath string
	var category string
	var limit int
	var fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Run one aggregation pass and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			idx, err := index.New()
			if err != nil {
				return err
			}
			tele := telemetry.New(prometheus.NewRegistry())
			agg := aggregator.New(cfg,
				sources.Build(cfg, nil),
				fetch.NewFanOut(tele),
				cache.NewMemoryStore(),
				ratelimit.New(cfg.RateLimit),
				rank.New(cfg.Ranking),
				idx, tele)

			result, err := agg.AggregateNews(context.Background(), limit, category, nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	fetchCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	fetchCmd.Flags().StringVar(&category, "category", "", "category filter")
	fetchCmd.Flags().IntVar(&limit, "limit", 20, "max articles")

	return fetchCmd
}
