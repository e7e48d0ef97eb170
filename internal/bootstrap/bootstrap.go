package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DanielHemmis/BggCollections/internal/aggregation"
	"github.com/DanielHemmis/BggCollections/internal/collections"
	"github.com/DanielHemmis/BggCollections/internal/metadata"
	"github.com/DanielHemmis/BggCollections/pkg/bgg"
	"github.com/DanielHemmis/BggCollections/pkg/config"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
	"github.com/DanielHemmis/BggCollections/pkg/metrics"
	"github.com/DanielHemmis/BggCollections/pkg/redis"
)

// Options tune what Build wires beyond the config.
type Options struct {
	// Registerer receives the aggregation metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	// Progress observes per-user metadata progress.
	Progress aggregation.ProgressFunc
	// BGGOptions are appended to the config derived client options.
	BGGOptions []bgg.Option
}

// App holds the wired collaborators shared by the binaries.
type App struct {
	Collections collections.Service
	Redis       *redis.Client
	Metrics     *metrics.AggregationMetrics
}

// Build wires the BGG client, the optional redis metadata cache and the
// aggregation pipeline from cfg.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	var aggMetrics *metrics.AggregationMetrics
	if opts.Registerer != nil {
		aggMetrics = metrics.NewAggregationMetrics(opts.Registerer)
	}

	client := bgg.NewClientFromConfig(cfg.BGG, opts.BGGOptions...)

	var lookup metadata.Lookup = collections.NewBGGLookup(client)
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		rc, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		cached, err := metadata.NewCachedLookup(metadata.CachedLookupParams{
			Next:    lookup,
			Store:   rc,
			TTL:     cfg.Cache.MetadataTTL,
			Logger:  logg,
			Metrics: aggMetrics,
		})
		if err != nil {
			_ = rc.Close()
			return nil, err
		}
		lookup = cached
		redisClient = rc
	} else {
		logg.Info(ctx, "redis not configured; metadata cache disabled")
	}

	resolver, err := metadata.NewResolver(metadata.ResolverParams{
		Lookup:    lookup,
		BatchSize: cfg.BGG.BatchSize,
		Logger:    logg,
		Metrics:   aggMetrics,
	})
	if err != nil {
		return nil, err
	}

	coordinator, err := aggregation.NewService(aggregation.ServiceParams{
		Resolver: resolver,
		Workers:  cfg.Aggregation.WorkerLimit(),
		Logger:   logg,
		Metrics:  aggMetrics,
		Progress: opts.Progress,
	})
	if err != nil {
		return nil, err
	}

	svc, err := collections.NewService(collections.ServiceParams{
		Source:       collections.NewBGGSource(client),
		Coordinator:  coordinator,
		FetchWorkers: cfg.Aggregation.WorkerLimit(),
		Logger:       logg,
		Metrics:      aggMetrics,
	})
	if err != nil {
		return nil, err
	}

	return &App{Collections: svc, Redis: redisClient, Metrics: aggMetrics}, nil
}

// Close releases the redis connection when one was opened.
func (a *App) Close() error {
	if a == nil || a.Redis == nil {
		return nil
	}
	return a.Redis.Close()
}
