package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is an in-process Store for single-instance deployments and
// tests. Expiry is lazy: a read of an expired entry behaves as if the entry
// does not exist. A background sweep reclaims memory for keys that stop
// arriving; correctness does not depend on it.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	stopSweep chan struct{}
	stopOnce  sync.Once

	// now is swapped in tests to control window rollover
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries:   make(map[string]*windowEntry),
		stopSweep: make(chan struct{}),
		now:       time.Now,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopSweep:
				return
			}
		}
	}()

	return s
}

func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &windowEntry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = e
	}

	e.count++
	return e.count, e.resetAt, nil
}

// sweep deletes entries whose window has already passed. Safe to run
// alongside increments: it only removes keys that Increment would recreate
// anyway.
func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.resetAt) {
			delete(s.entries, key)
		}
	}
}

// Close stops the background sweep.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stopSweep) })
}
