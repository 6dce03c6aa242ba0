// Package ratelimit enforces per-tier, per-endpoint-class request caps over
// a fixed time window. The counter lives behind the Store interface so the
// same limiter runs against an in-process map or a shared Redis counter.
//
// The window is fixed, not sliding: counts reset entirely at the window
// boundary, so burst traffic straddling a boundary can reach up to 2x the
// nominal limit. That is an accepted simplification, not a bug.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/manicinc/synthstack-gateway/internal/tier"
)

// Result is the outcome of a single check-and-increment.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Config tunes a TieredLimiter.
type Config struct {
	// Window is the fixed counting window. Defaults to one minute.
	Window time.Duration
	// AllowList identifiers (trusted internal IPs, service accounts) are
	// always allowed and never counted.
	AllowList []string
	// SkipOnError makes store failures fail open: the request is allowed
	// and the error swallowed. Default is to propagate the error and let
	// the caller decide.
	SkipOnError bool
}

type TieredLimiter struct {
	store       Store
	window      time.Duration
	allowList   map[string]struct{}
	skipOnError bool
}

func NewTieredLimiter(store Store, cfg Config) *TieredLimiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	allow := make(map[string]struct{}, len(cfg.AllowList))
	for _, id := range cfg.AllowList {
		allow[id] = struct{}{}
	}

	return &TieredLimiter{
		store:       store,
		window:      cfg.Window,
		allowList:   allow,
		skipOnError: cfg.SkipOnError,
	}
}

// Window returns the configured counting window.
func (l *TieredLimiter) Window() time.Duration {
	return l.window
}

// CheckAndIncrement counts the request against the (class, identifier)
// bucket and compares the post-increment count to the tier's cap for the
// class. The increment happens before the comparison, so the request that
// first exceeds the limit is itself counted and rejected.
func (l *TieredLimiter) CheckAndIncrement(ctx context.Context, identifier string, class tier.LimitClass, t tier.Tier) (Result, error) {
	limit := t.Limits().For(class)

	if _, ok := l.allowList[identifier]; ok {
		return Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetAt:   time.Now().Add(l.window),
		}, nil
	}

	key := fmt.Sprintf("%s:%s", class, identifier)

	count, resetAt, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		if l.skipOnError {
			return Result{
				Allowed:   true,
				Limit:     limit,
				Remaining: limit,
				ResetAt:   time.Now().Add(l.window),
			}, nil
		}
		return Result{}, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
