package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	UniqueViolationCode     = "23505"
	ForeignKeyViolationCode = "23503"
	UndefinedTableCode      = "42P01"
)

// AsPgError unwraps err into a *pgconn.PgError when the server reported one.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
