package storage

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-memory map.
// Thread-safe for concurrent access. For tests and ephemeral sessions;
// nothing survives process exit.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
	}
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// MultiSet stores all pairs under one lock acquisition.
func (s *MemoryStore) MultiSet(ctx context.Context, pairs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range pairs {
		stored := make([]byte, len(value))
		copy(stored, value)
		s.values[key] = stored
	}
	return nil
}

// MultiRemove deletes all keys under one lock acquisition.
func (s *MemoryStore) MultiRemove(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

// Clear removes every key.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string][]byte)
	return nil
}
