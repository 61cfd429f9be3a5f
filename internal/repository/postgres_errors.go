package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func postgresCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// classify maps driver errors onto the repository sentinels. Anything it
// does not recognise is returned wrapped, and callers treat it as a store
// failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	switch postgresCode(err) {
	case pgerrcode.UniqueViolation:
		return ErrConflict
	case pgerrcode.ForeignKeyViolation:
		return ErrInvalidRef
	case pgerrcode.InvalidTextRepresentation:
		// a malformed uuid can never match a row
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
