package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/trip-safety-client/internal/adapters/postgres"
	"github.com/Overland-East-Bay/trip-safety-client/internal/ports/out/storage"
)

// Store is a Postgres implementation of storage.Storage.
//
// Rows are partitioned by namespace so several client installations can share one database.
type Store struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewStore(pool *pgxpool.Pool, namespace string) *Store {
	return &Store{pool: pool, namespace: namespace}
}

func (s *Store) Get(ctx context.Context, key storage.Key) ([]byte, bool, error) {
	if s.pool == nil {
		return nil, false, errors.New("nil postgres pool")
	}
	var value []byte
	err := s.pool.QueryRow(ctx, `
		SELECT value
		FROM client_storage
		WHERE namespace = $1
		  AND key = $2
	`, s.namespace, string(key)).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UndefinedTableCode {
			return nil, false, fmt.Errorf("client_storage table missing (run migrations): %w", err)
		}
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key storage.Key, value []byte) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if key == "" {
		return storage.ErrInvalidKey
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_storage (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, s.namespace, string(key), value)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...storage.Key) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, string(k))
	}
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM client_storage
		WHERE namespace = $1
		  AND key = ANY($2)
	`, s.namespace, names); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}
