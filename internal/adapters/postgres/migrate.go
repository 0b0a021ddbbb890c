package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently on startup; the client owns exactly one table.
const schema = `
CREATE TABLE IF NOT EXISTS client_storage (
	namespace   TEXT        NOT NULL,
	key         TEXT        NOT NULL,
	value       BYTEA       NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// Migrate creates the client storage table if it does not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("nil postgres pool")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply client storage schema: %w", err)
	}
	return nil
}
