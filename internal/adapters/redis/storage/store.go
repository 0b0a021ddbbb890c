package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// Store is a Redis implementation of storage.Storage.
// Keys are written as "<namespace>:<key>".
type Store struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewStore returns a Redis-backed store. A zero ttl keeps entries until they are deleted.
func NewStore(client *redis.Client, namespace string, ttl time.Duration) *Store {
	return &Store{client: client, namespace: namespace, ttl: ttl}
}

func (s *Store) key(k storage.Key) string {
	return s.namespace + ":" + string(k)
}

func (s *Store) Get(ctx context.Context, key storage.Key) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *Store) Put(ctx context.Context, key storage.Key, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...storage.Key) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
