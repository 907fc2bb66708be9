package services

import (
	"commute-forecast/internal/domain"
	"commute-forecast/internal/ports"
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type CacheRecorder interface {
	CacheHit()
	CacheMiss()
}

// CachingPredictor checks a PredictionCache before delegating to Next.
// Cache failures are logged and never fail the lookup.
type CachingPredictor struct {
	Next    ports.DurationPredictor
	Cache   ports.PredictionCache
	Metrics CacheRecorder
}

func (c *CachingPredictor) PredictDuration(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	departAt time.Time,
) (ports.Prediction, error) {
	key := ports.PredictionKey{Origin: origin, Destination: destination, DepartAt: departAt}

	if c.Cache != nil {
		p, ok, err := c.Cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("prediction cache read failed")
		}
		if ok {
			if c.Metrics != nil {
				c.Metrics.CacheHit()
			}
			return p, nil
		}
		if c.Metrics != nil {
			c.Metrics.CacheMiss()
		}
	}

	p, err := c.Next.PredictDuration(ctx, origin, destination, departAt)
	if err != nil {
		return ports.Prediction{}, err
	}

	if c.Cache != nil {
		if err := c.Cache.Put(ctx, key, p); err != nil {
			log.Warn().Err(err).Msg("prediction cache write failed")
		}
	}

	return p, nil
}
