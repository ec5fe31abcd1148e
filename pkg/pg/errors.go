package pg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsSerializationFailure reports whether err is a transient conflict raised by
// postgres for a SERIALIZABLE transaction (or a detected deadlock). Such a
// transaction must be rerun from the start with fresh reads.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}
