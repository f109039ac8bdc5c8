package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/asakaida/gakudan/internal/entities"
)

// Bounded retry for transient failures (serialization conflicts,
// deadlocks). Exhaustion surfaces as entities.ErrRetryExhausted.
const maxRetryAttempts = 3

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqSerializationFail   = "40001"
	pqDeadlockDetected    = "40P01"
)

// mapError converts driver-level constraint failures into the domain
// error kinds callers branch on. Other errors pass through unchanged.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return entities.NewUniqueViolation(constraintField(pqErr.Constraint))
	case pqForeignKeyViolation:
		return &entities.ReferentialIntegrityError{
			Message: "unable to save changes: the record is referenced by other data",
		}
	}
	return err
}

// constraintField extracts the column name from a Postgres unique
// constraint name of the form table_column_key.
func constraintField(constraint string) string {
	parts := strings.Split(constraint, "_")
	if len(parts) >= 3 && parts[len(parts)-1] == "key" {
		return strings.Join(parts[1:len(parts)-1], "_")
	}
	return constraint
}

// isTransient reports whether the error is worth retrying.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqSerializationFail || pqErr.Code == pqDeadlockDetected
}

// withRetry runs fn up to maxRetryAttempts times, retrying only transient
// failures.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", entities.ErrRetryExhausted, err)
}
