package numbering

import (
	"context"
	"sync"
)

// InMemoryCounterStore is a mutex-guarded per-key counter. It is the default
// for single-process deployments and tests.
type InMemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{counters: make(map[string]int64)}
}

func (s *InMemoryCounterStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}
