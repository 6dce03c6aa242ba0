package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/manicinc/synthstack-gateway/internal/storage"
)

// RedisStore is a Store over a shared Redis instance, for horizontally
// scaled deployments where every gateway instance must observe one counter.
// INCR is atomic, so racing increments each get a distinct count.
type RedisStore struct {
	redis *storage.RedisClient
}

func NewRedisStore(redis *storage.RedisClient) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	now := time.Now()

	count, err := s.redis.Incr(ctx, redisKey)
	if err != nil {
		return 0, time.Time{}, err
	}

	if count == 1 {
		// First request in the window owns the expiry
		if err := s.redis.Expire(ctx, redisKey, window); err != nil {
			return 0, time.Time{}, err
		}
		return count, now.Add(window), nil
	}

	ttl, err := s.redis.PTTL(ctx, redisKey)
	if err != nil {
		return 0, time.Time{}, err
	}
	if ttl <= 0 {
		// Expiry was lost (e.g. the owning instance died between INCR and
		// EXPIRE). Re-arm it rather than leaving an immortal counter.
		if err := s.redis.Expire(ctx, redisKey, window); err != nil {
			return 0, time.Time{}, err
		}
		ttl = window
	}

	return count, now.Add(ttl), nil
}
