package store

import (
	"context"
	"sync"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory result cache. It does not survive a restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: slot name, value: JSON blob
	data map[string]string
}

// NewMemoryStore creates a new, empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

func (s *MemoryStore) Load(ctx context.Context) (weather.CacheEntry, error) {
	return load(ctx, s)
}

func (s *MemoryStore) Save(ctx context.Context, snapshot *weather.WeatherSnapshot, averages weather.MonthlyAverages) error {
	return save(ctx, s, snapshot, averages)
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) put(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.data[k] = v
	}
	return nil
}
