package evidence

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	obs      map[string][]Observation
	failures map[string][]string
	bundles  map[string][]Bundle
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		obs:      make(map[string][]Observation),
		failures: make(map[string][]string),
		bundles:  make(map[string][]Bundle),
	}
}

// AddObservations appends observations under key.
func (s *MemoryStore) AddObservations(key string, obs ...Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs[key] = append(s.obs[key], obs...)
}

// AddFailures appends known failure notes under key.
func (s *MemoryStore) AddFailures(key string, failures ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = append(s.failures[key], failures...)
}

func (s *MemoryStore) Observations(_ context.Context, key string) ([]Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Observation, len(s.obs[key]))
	copy(out, s.obs[key])
	return out, nil
}

func (s *MemoryStore) Failures(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.failures[key]))
	copy(out, s.failures[key])
	return out, nil
}

// SaveBundle appends: bundles are an immutable audit trail.
func (s *MemoryStore) SaveBundle(_ context.Context, b Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[b.VariantKey] = append(s.bundles[b.VariantKey], b)
	return nil
}

func (s *MemoryStore) LatestBundle(_ context.Context, key string) (Bundle, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.bundles[key]
	if len(history) == 0 {
		return Bundle{}, false, nil
	}
	return history[len(history)-1], true, nil
}
