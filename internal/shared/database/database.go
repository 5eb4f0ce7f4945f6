package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrOptimisticLock reports a compare-and-swap update that matched no row
// because the record changed since it was read.
var ErrOptimisticLock = errors.New("record was modified concurrently")

const (
	pgUniqueViolation       = "23505"
	pgExclusionViolation    = "23P01"
	pgCheckViolation        = "23514"
	pgSerializationFailure  = "40001"
	pgDeadlockDetected      = "40P01"
	pgLockNotAvailable      = "55P03"
	duplicateKeyMessagePart = "duplicate key value"
)

// OnTx returns a gorm handle whose statements run on tx. When tx is nil the
// original handle is returned unchanged.
func OnTx(db *gorm.DB, tx *sql.Tx) *gorm.DB {
	if tx == nil {
		return db
	}
	// A context-carrying session clones the statement, so swapping the
	// connection pool does not leak into db.
	sess := db.Session(&gorm.Session{Context: context.Background(), NewDB: true})
	sess.Statement.ConnPool = tx
	return sess
}

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports a 23505 on the named constraint. An empty
// constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if pgErr, ok := pgError(err); ok {
		return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, duplicateKeyMessagePart) && strings.Contains(msg, strings.ToLower(constraint))
}

// IsExclusionViolation reports a 23P01 on the named constraint.
func IsExclusionViolation(err error, constraint string) bool {
	if pgErr, ok := pgError(err); ok {
		return pgErr.Code == pgExclusionViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// IsCheckViolation reports a 23514 on the named constraint.
func IsCheckViolation(err error, constraint string) bool {
	if pgErr, ok := pgError(err); ok {
		return pgErr.Code == pgCheckViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

// IsRetryable reports transient concurrency failures: optimistic lock
// misses, serialization failures and deadlocks.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOptimisticLock) {
		return true
	}
	if pgErr, ok := pgError(err); ok {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
	}
	return false
}
