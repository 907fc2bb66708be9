package cache

import (
	"commute-forecast/internal/platform/obs"
	"commute-forecast/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisPredictionCache keeps predictions in Redis with a fixed expiry.
type RedisPredictionCache struct {
	Cache *cache.Cache[string]
}

func NewRedisPredictionCache(client *redis.Client, ttl time.Duration) *RedisPredictionCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))

	return &RedisPredictionCache{Cache: cache.New[string](redisStore)}
}

func redisKey(key ports.PredictionKey) string {
	return fmt.Sprintf("commute:prediction:%s:%s:%d", key.Origin, key.Destination, key.DepartAt.Unix())
}

// Get reports a miss for absent or expired keys. Any other store failure is
// returned so callers can tell an outage from a cold cache.
func (r *RedisPredictionCache) Get(
	ctx context.Context,
	key ports.PredictionKey,
) (_ ports.Prediction, _ bool, err error) {
	defer obs.Time(ctx, "prediction.redis.Get")(&err)

	raw, err := r.Cache.Get(ctx, redisKey(key))
	if err != nil {
		if isNotFound(err) {
			log.Debug().Str("key", redisKey(key)).Msg("prediction cache miss")
			return ports.Prediction{}, false, nil
		}
		return ports.Prediction{}, false, fmt.Errorf("get prediction cache %q: %w", redisKey(key), err)
	}

	var p ports.Prediction
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return ports.Prediction{}, false, fmt.Errorf("get prediction cache: decode %q: %w", redisKey(key), err)
	}

	return p, true, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.NotFound{}) || errors.Is(err, redis.Nil)
}

func (r *RedisPredictionCache) Put(ctx context.Context, key ports.PredictionKey, p ports.Prediction) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("insert prediction cache: encode: %w", err)
	}

	if err := r.Cache.Set(ctx, redisKey(key), string(b)); err != nil {
		return fmt.Errorf("insert prediction cache %q: %w", redisKey(key), err)
	}

	return nil
}
