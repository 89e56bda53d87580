package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure classes reported by Classify.
const (
	ClassUnique     = "unique_violation"
	ClassNotNull    = "not_null_violation"
	ClassCheck      = "check_violation"
	ClassSchema     = "schema_error"
	ClassConnection = "connection_error"
	ClassPostgres   = "postgres_error"
	ClassUnknown    = "unknown"
)

// Classify maps a storage error to a short class for logging. The second
// return value is the raw SQLSTATE when err wraps a *pgconn.PgError.
func Classify(err error) (class, code string) {
	if err == nil {
		return "", ""
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		var connErr *pgconn.ConnectError
		if errors.As(err, &connErr) {
			return ClassConnection, ""
		}
		return ClassUnknown, ""
	}

	switch {
	case pgErr.Code == "23505":
		return ClassUnique, pgErr.Code
	case pgErr.Code == "23502":
		return ClassNotNull, pgErr.Code
	case pgErr.Code == "23514":
		return ClassCheck, pgErr.Code
	case pgErr.Code == "42P01", pgErr.Code == "42703":
		return ClassSchema, pgErr.Code
	case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "53300":
		return ClassConnection, pgErr.Code
	default:
		return ClassPostgres, pgErr.Code
	}
}
