package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/andrejche/coinfly-v2/internal/config"
	"github.com/andrejche/coinfly-v2/internal/imgcache"
	"github.com/andrejche/coinfly-v2/internal/market"
	"github.com/andrejche/coinfly-v2/internal/news"
	"github.com/andrejche/coinfly-v2/internal/refresh"
	"github.com/andrejche/coinfly-v2/internal/store"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh and exit",
	Long: `Fetch the price and news feeds once, cache any new images, publish the
payloads, and exit. Useful for cron-driven deployments and smoke testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := newLogger()

		ctx := cmd.Context()
		st, err := buildStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initializing storage: %w", err)
		}

		return buildPipeline(cfg, st, logger).Run(ctx)
	},
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return store.NewS3(ctx, store.S3Config{
			Bucket:        cfg.Storage.S3.Bucket,
			Region:        cfg.Storage.S3.Region,
			KeyPrefix:     cfg.Storage.S3.KeyPrefix,
			PublishPrefix: cfg.Storage.S3.PublishPrefix,
			PublicBaseURL: cfg.Storage.S3.PublicBaseURL,
		})
	default:
		return store.NewLocal(cfg.Storage.Local.Dir, cfg.Storage.Local.PublicPrefix)
	}
}

func buildPipeline(cfg *config.Config, st store.Store, logger *slog.Logger) *refresh.Pipeline {
	marketClient := market.NewClient(cfg.Prices.APIURL, cfg.Prices.VsCurrency,
		cfg.Prices.Coins, cfg.ImageFetchTimeout(), logger)

	var source news.Source
	switch cfg.News.Source {
	case "rss":
		source = news.NewRSSClient(cfg.News.RSSURL, cfg.News.ImageHost)
	default:
		source = news.NewAPIClient(cfg.News.APIURL, cfg.News.ImageHost, cfg.ImageFetchTimeout())
	}

	fetcher := imgcache.NewFetcher(cfg.ImageFetchTimeout(), cfg.Images.MinBytes, cfg.Images.MaxBytes)
	resolver := imgcache.NewResolver(st, fetcher, cfg.News.ImageHost, logger)

	return refresh.NewPipeline(marketClient, source, resolver, st,
		cfg.MaxNewsItems(), cfg.ImageConcurrency(), logger)
}
