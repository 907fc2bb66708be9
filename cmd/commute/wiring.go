package main

import (
	"commute-forecast/internal/adapters/cache"
	"commute-forecast/internal/adapters/traffic"
	"commute-forecast/internal/config"
	"commute-forecast/internal/platform/db"
	"commute-forecast/internal/platform/metrics"
	"commute-forecast/internal/ports"
	"commute-forecast/internal/services"
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

var fetchFlags = []cli.Flag{
	&cli.IntFlag{Name: "concurrency", Usage: "maximum lookups in flight (overrides FETCH_CONCURRENCY)"},
	&cli.StringFlag{Name: "failure-policy", Usage: "abort or skip (overrides FAILURE_POLICY)"},
	&cli.IntFlag{Name: "day-offset", Usage: "sample the week starting this many days from now, plus one (overrides DAY_OFFSET)"},
}

// applyFlags lets command-line flags override values loaded from the environment.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("concurrency") {
		if n := c.Int("concurrency"); n >= 1 {
			cfg.FetchConcurrency = n
		} else {
			return fmt.Errorf("invalid --concurrency: %d", n)
		}
	}
	if c.IsSet("failure-policy") {
		p, err := config.ParseFailurePolicy(c.String("failure-policy"))
		if err != nil {
			return err
		}
		cfg.FailurePolicy = p
	}
	if c.IsSet("day-offset") {
		if n := c.Int("day-offset"); n >= 0 {
			cfg.DayOffset = n
		} else {
			return fmt.Errorf("invalid --day-offset: %d", n)
		}
	}
	return nil
}

// newPipeline wires the Distance Matrix adapter, the optional prediction
// cache and metrics behind the pipeline. The returned func releases any
// cache connections.
func newPipeline(ctx context.Context, cfg *config.Config, mcol *metrics.Collector) (*services.Pipeline, func(), error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, nil, err
	}

	remote, err := traffic.NewDistanceMatrixPredictor(cfg.APIKey, traffic.Options{
		BaseURL:    cfg.DistanceMatrixURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}

	predictionCache, closeCache, err := openPredictionCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var predictor ports.DurationPredictor = remote
	if predictionCache != nil {
		predictor = &services.CachingPredictor{Next: remote, Cache: predictionCache, Metrics: mcol}
	}

	p := services.NewPipeline(cfg, predictor)
	p.Fetch.Metrics = mcol
	p.Metrics = mcol

	return p, closeCache, nil
}

// openPredictionCache prefers Postgres when DATABASE_URL is set, then Redis.
// With neither configured every lookup goes to the remote service.
func openPredictionCache(ctx context.Context, cfg *config.Config) (ports.PredictionCache, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		if n, err := cache.PurgeExpired(ctx, sqlDB, time.Now(), cfg.PredictionCacheTTL); err != nil {
			log.Warn().Err(err).Msg("prediction cache purge failed")
		} else if n > 0 {
			log.Info().Int64("rows", n).Msg("purged stale predictions")
		}
		log.Info().Msg("using postgres prediction cache")
		return cache.NewSQLPredictionCache(sqlDB, cfg.PredictionCacheTTL), func() { sqlDB.Close() }, nil

	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis %q: %w", cfg.RedisAddr, err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis prediction cache")
		return cache.NewRedisPredictionCache(client, cfg.PredictionCacheTTL), func() { client.Close() }, nil

	default:
		return nil, func() {}, nil
	}
}
