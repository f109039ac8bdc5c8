package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for outcomes the caller branches on.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDeletedConcurrently indicates the record was deleted by another
	// writer between load and commit. No diff can be produced.
	ErrDeletedConcurrently = errors.New("record was deleted by another user")

	// ErrRetryExhausted indicates a transient persistence failure survived
	// the bounded retry loop.
	ErrRetryExhausted = errors.New("unable to save changes after multiple attempts")

	// ErrStaleVersion is the raw compare-and-swap failure reported by the
	// persistence layer. Services convert it into a VersionConflictError
	// carrying the field diff.
	ErrStaleVersion = errors.New("version token is stale")
)

// FieldConflict reports one field where the caller's attempted value
// differs from the latest persisted value.
type FieldConflict struct {
	Field     string `json:"field"`
	Attempted string `json:"attempted"`
	Current   string `json:"current"`
}

// ConflictDiff is the structured report returned when an optimistic update
// fails its version check. LatestVersion is the token now stored, so a
// retry submitted with it can proceed.
type ConflictDiff struct {
	Fields        []FieldConflict `json:"fields"`
	LatestVersion string          `json:"latest_version"`
}

// VersionConflictError indicates the caller's version token went stale:
// another writer committed first. Carries the field-by-field diff.
type VersionConflictError struct {
	Diff *ConflictDiff
}

func (e *VersionConflictError) Error() string {
	return "the record was modified by another user after you loaded it"
}

// ValidationError indicates user input that fails a domain rule.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation builds a ValidationError.
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UniqueViolationError indicates a business-key uniqueness violation,
// surfaced as a field-level error.
type UniqueViolationError struct {
	Field   string
	Message string
}

func (e *UniqueViolationError) Error() string {
	return e.Message
}

// ReferentialIntegrityError indicates the operation would break a foreign
// key, e.g. deleting an instrument some musician still plays.
type ReferentialIntegrityError struct {
	Message string
}

func (e *ReferentialIntegrityError) Error() string {
	return e.Message
}

// IsRecoverable reports whether err is one of the user-facing error kinds
// that the operation boundary converts to a message instead of a 500.
func IsRecoverable(err error) bool {
	var vc *VersionConflictError
	var uv *UniqueViolationError
	var ri *ReferentialIntegrityError
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDeletedConcurrently),
		errors.Is(err, ErrRetryExhausted),
		errors.As(err, &vc),
		errors.As(err, &uv),
		errors.As(err, &ri),
		errors.As(err, &ve):
		return true
	}
	return false
}

// NewUniqueViolation builds the field-level error for a duplicated
// business key.
func NewUniqueViolation(field string) *UniqueViolationError {
	return &UniqueViolationError{
		Field:   field,
		Message: fmt.Sprintf("unable to save changes: duplicate %s values are not allowed", field),
	}
}
