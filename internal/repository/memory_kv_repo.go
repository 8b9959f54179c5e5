package repository

import (
	"context"
	"sync"
)

type memoryKeyValueRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKeyValueRepository returns a store that lives as long as the process.
func NewMemoryKeyValueRepository() KeyValueRepository {
	return &memoryKeyValueRepository{data: make(map[string][]byte)}
}

func (m *memoryKeyValueRepository) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memoryKeyValueRepository) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryKeyValueRepository) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}
