package persistence

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that mean "the same write may succeed if retried"
const (
	sqlStateLockNotAvailable     = "55P03"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateQueryCanceled        = "57014"
	sqlStateSerializationFailure = "40001"
)

// ClassifyError maps driver errors onto the domain taxonomy. Lock waits,
// deadlocks, cancelled statements and expired contexts become the retryable
// shared.ErrOperationTimedOut; duplicate keys become shared.ErrAlreadyExists.
// Domain errors and anything unrecognised pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.WrapDomainError(shared.CodeOperationTimedOut, shared.ErrOperationTimedOut.Message, err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.WrapDomainError(shared.CodeAlreadyExists, shared.ErrAlreadyExists.Message, err)
	}
	if retryableState(sqlState(err)) {
		return shared.WrapDomainError(shared.CodeOperationTimedOut, shared.ErrOperationTimedOut.Message, err)
	}
	return err
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func retryableState(code string) bool {
	switch code {
	case sqlStateLockNotAvailable, sqlStateDeadlockDetected, sqlStateQueryCanceled, sqlStateSerializationFailure:
		return true
	}
	return false
}

// notFound maps gorm's missing-row error to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}
