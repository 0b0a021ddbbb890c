package storage

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// Store is an in-memory implementation of storage.Storage.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[storage.Key][]byte
}

func NewStore() *Store {
	return &Store{
		m: make(map[storage.Key][]byte),
	}
}

func (s *Store) Get(ctx context.Context, key storage.Key) ([]byte, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Put(ctx context.Context, key storage.Key, value []byte) error {
	_ = ctx
	if key == "" {
		return storage.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...storage.Key) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
