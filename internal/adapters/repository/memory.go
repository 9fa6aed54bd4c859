package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
	"github.com/MiradoConsulting/RobocodeEngine/pkg/metrics"
)

// MemoryStore is an append-only in-process history.
type MemoryStore struct {
	mu       sync.RWMutex
	battles  map[string]model.BattleStatistics
	capacity int
}

// NewMemoryStore creates an empty history.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	s.battles = make(map[string]model.BattleStatistics, s.capacity)
	return s
}

// Add implements Store.
func (s *MemoryStore) Add(_ context.Context, stats model.BattleStatistics) (bool, error) {
	if stats.Key == "" {
		return false, ErrInvalidKey
	}

	s.mu.Lock()
	if _, ok := s.battles[stats.Key]; ok {
		s.mu.Unlock()
		return false, nil
	}
	s.battles[stats.Key] = stats.Clone()
	n := len(s.battles)
	s.mu.Unlock()

	metrics.UpdateHistorySize(n)
	return true, nil
}

// Has implements Store.
func (s *MemoryStore) Has(_ context.Context, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.battles[key]
	return ok
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (model.BattleStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.battles[key]
	if !ok {
		return model.BattleStatistics{}, ErrNotFound
	}
	return b.Clone(), nil
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context) []model.BattleStatistics {
	s.mu.RLock()
	out := make([]model.BattleStatistics, 0, len(s.battles))
	for _, b := range s.battles {
		out = append(out, b.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.battles)
}
