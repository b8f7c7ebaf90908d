// Package refresh runs the periodic aggregation pipeline: fetch upstream
// price and news feeds, cache news images, and publish the two payloads.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andrejche/coinfly-v2/internal/imgcache"
	"github.com/andrejche/coinfly-v2/internal/logging"
	"github.com/andrejche/coinfly-v2/internal/market"
	"github.com/andrejche/coinfly-v2/internal/news"
	"github.com/andrejche/coinfly-v2/internal/store"
)

const (
	PricesPayloadName = "prices.json"
	NewsPayloadName   = "news.json"
)

type Pipeline struct {
	market      *market.Client
	news        news.Source
	resolver    *imgcache.Resolver
	store       store.Store
	maxItems    int
	concurrency int
	logger      *slog.Logger

	now func() time.Time
}

func NewPipeline(m *market.Client, n news.Source, r *imgcache.Resolver, st store.Store,
	maxItems, concurrency int, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		market:      m,
		news:        n,
		resolver:    r,
		store:       st,
		maxItems:    maxItems,
		concurrency: concurrency,
		logger:      logging.Default(logger).With("component", "refresh"),
		now:         time.Now,
	}
}

// Run executes one refresh. The price and news feeds are independent: a
// failure in one still publishes the other, and a failed feed leaves its
// previous payload in place. The returned error aggregates per-feed
// failures for the scheduler's log.
func (p *Pipeline) Run(ctx context.Context) error {
	start := p.now()
	updatedAt := start.UTC().Format(time.RFC3339)

	var errs []error
	if err := p.runPrices(ctx, updatedAt); err != nil {
		p.logger.Error("prices feed failed", "error", err)
		errs = append(errs, fmt.Errorf("prices: %w", err))
	}
	if err := p.runNews(ctx, updatedAt); err != nil {
		p.logger.Error("news feed failed", "error", err)
		errs = append(errs, fmt.Errorf("news: %w", err))
	}

	p.logger.Info("refresh run finished",
		"updatedAt", updatedAt,
		"duration", p.now().Sub(start).Round(time.Millisecond),
		"failures", len(errs))
	return errors.Join(errs...)
}

func (p *Pipeline) runPrices(ctx context.Context, updatedAt string) error {
	data, err := p.market.Fetch(ctx)
	if err != nil {
		return err
	}
	return p.publish(ctx, PricesPayloadName, market.Payload{
		UpdatedAt: updatedAt,
		Data:      data,
	})
}

func (p *Pipeline) runNews(ctx context.Context, updatedAt string) error {
	items, err := p.news.Fetch(ctx)
	if err != nil {
		return err
	}
	items = news.Limit(items, p.maxItems)
	p.resolveImages(ctx, items)

	return p.publish(ctx, NewsPayloadName, news.Payload{
		UpdatedAt: updatedAt,
		Items:     items,
	})
}

// resolveImages caches each item's image concurrently. Resolution is best
// effort: a failed image leaves ImageLocal null and never fails the run.
// Goroutines write disjoint indices, so no locking is needed.
func (p *Pipeline) resolveImages(ctx context.Context, items []news.Item) {
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	var attempted, resolved atomic.Int64
	for i := range items {
		if items[i].Image == nil {
			continue
		}
		attempted.Add(1)
		g.Go(func() error {
			if ref := p.resolver.Resolve(ctx, *items[i].Image); ref != "" {
				items[i].ImageLocal = &ref
				resolved.Add(1)
			}
			return nil
		})
	}
	// Goroutines never return errors; Resolve reports failure as "".
	_ = g.Wait()
	p.logger.Debug("image resolution finished",
		"attempted", attempted.Load(), "resolved", resolved.Load())
}

// publish marshals the whole payload and writes it through the store in one
// atomic step, so readers never see a partial document.
func (p *Pipeline) publish(ctx context.Context, name string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	if err := p.store.Publish(ctx, name, data, "application/json"); err != nil {
		return fmt.Errorf("publishing %s: %w", name, err)
	}
	return nil
}
