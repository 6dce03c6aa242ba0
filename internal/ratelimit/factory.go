package ratelimit

import (
	"github.com/manicinc/synthstack-gateway/internal/storage"
)

// NewStore picks the backing store once at startup: the shared Redis counter
// when a handle is available (multi-instance deployments), the in-process
// map otherwise. The store is never swapped at runtime.
func NewStore(redis *storage.RedisClient) Store {
	if redis != nil {
		return NewRedisStore(redis)
	}
	return NewMemoryStore()
}
