package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/resolver"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/redis"
)

var (
	metricsOnce sync.Once
	appMetrics  *metrics.Metrics
)

func processMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		appMetrics = metrics.New(prometheus.DefaultRegisterer)
	})
	return appMetrics
}

// app is the wired engine: an immutable index plus everything that serves
// queries against it.
type app struct {
	store    store.Store
	index    *index.Index
	resolver *resolver.Resolver
	cache    *cache.PostingCache
	metrics  *metrics.Metrics
	health   *health.Checker
	closers  []func() error
}

type appOptions struct {
	source   string
	progress io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{metrics: processMetrics(), health: health.NewChecker()}

	st, err := openStore(ctx, cfg, a.health)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	buildOpts := []indexer.Option{indexer.WithMetrics(a.metrics)}
	var bar *progressbar.ProgressBar
	if opts.progress != nil {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(opts.progress),
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		buildOpts = append(buildOpts, indexer.WithProgress(func(uint32) { _ = bar.Add(1) }))
	}
	idx, err := indexer.Build(ctx, st, buildOpts...)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	a.index = idx
	a.health.Register("index", func(context.Context) health.ComponentHealth {
		if idx.DocCount() == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no documents indexed"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	resolverOpts := []resolver.Option{
		resolver.WithQueryNormalization(cfg.Search.NormalizeQuery),
		resolver.WithLimit(cfg.Search.MaxResults),
		resolver.WithMetrics(a.metrics),
		resolver.WithSource(opts.source),
	}
	if cfg.Redis.Enabled {
		postings, err := pkgredis.Open(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, posting cache disabled", "error", err)
		} else {
			a.closers = append(a.closers, postings.Close)
			a.health.Register("redis", health.PingCheck(postings.Ping, health.StatusDegraded))
			a.cache = cache.New(postings, cfg.Redis.CacheTTL, idx.Fingerprint(), a.metrics)
			a.health.Register("posting_cache", a.cache.HealthCheck())
			resolverOpts = append(resolverOpts, resolver.WithCache(a.cache))
			slog.Info("posting cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		collector := analytics.NewCollector(producer, 0)
		collector.Start(ctx)
		a.closers = append(a.closers, func() error {
			collector.Close()
			return producer.Close()
		})
		resolverOpts = append(resolverOpts, resolver.WithTracker(collector))
		slog.Info("query analytics enabled", "topic", cfg.Kafka.Topics.QueryEvents)
	}

	snippets := snippet.New(st,
		snippet.WithLength(cfg.Search.SnippetLength),
		snippet.WithEllipsis(cfg.Search.SnippetEllipsis),
		snippet.WithFallback(cfg.Search.SnippetFallback),
	)
	a.resolver = resolver.New(idx, snippets, resolverOpts...)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}

func openStore(ctx context.Context, cfg *config.Config, checker *health.Checker) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		client, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrEmptyOrMissingStore, "%v", err)
		}
		checker.Register("postgres", health.PingCheck(client.Ping, health.StatusDown))
		return store.NewPostgresStore(client, cfg.Postgres.Table), nil
	default:
		s, err := store.NewDirStore(cfg.Store.Dir, cfg.Store.Ignore)
		if err != nil {
			return nil, fmt.Errorf("opening document directory: %w", err)
		}
		return s, nil
	}
}

func progressWriter(w io.Writer) io.Writer {
	if quiet {
		return nil
	}
	return w
}
