package service

import (
	"context"
	"encoding/json"
	"time"

	"flowershop/internal/domain"
	"flowershop/internal/metrics"

	"github.com/rs/zerolog"
)

// cachedJSON returns the value stored under key, computing and storing it on a miss.
// Cache failures degrade to calling load directly.
func cachedJSON[T any](ctx context.Context, cache domain.Cache, logger *zerolog.Logger, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if cache != nil {
		raw, ok, err := cache.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		if ok {
			var value T
			if err := json.Unmarshal(raw, &value); err == nil {
				metrics.IncCache(key, true)
				return value, nil
			}
			logger.Warn().Str("key", key).Msg("Dropping undecodable cache entry")
		}
		metrics.IncCache(key, false)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if cache != nil {
		raw, err := json.Marshal(value)
		if err == nil {
			err = cache.Set(ctx, key, raw, ttl)
		}
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return value, nil
}

func invalidate(ctx context.Context, cache domain.Cache, logger *zerolog.Logger, keys ...string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		logger.Warn().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
	}
}
