package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with a per-key sliding window of request
// timestamps. Suitable for single-instance deployments.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	kept := s.windows[key][:0]
	for _, ts := range s.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	result := &Result{Limit: limit, ResetAt: now.Add(window)}
	if len(kept) > 0 {
		result.ResetAt = kept[0].Add(window)
	}

	if len(kept) >= limit {
		s.windows[key] = kept
		return result, nil
	}

	kept = append(kept, now)
	s.windows[key] = kept
	result.Allowed = true
	result.Remaining = limit - len(kept)
	return result, nil
}
