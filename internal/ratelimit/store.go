package ratelimit

import (
	"context"
	"time"
)

// Store is the backing counter for fixed-window rate limiting. Increment
// atomically bumps the counter for key, creating a fresh window entry if the
// key is absent or its window has expired, and returns the post-increment
// count together with the window's reset time.
//
// Implementations must guarantee that concurrent increments on the same key
// each observe a distinct, monotonically increasing count.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}
