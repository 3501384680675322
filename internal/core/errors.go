package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a requested flat, payment, expense or user that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable marks a failed or timed out ledger store query.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	// ErrDeleteDisabled is returned when the delete permission flag is off.
	ErrDeleteDisabled = errors.New("deletion is disabled")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("already exists")
)

// ValidationError reports a missing or malformed input, detected before any query runs.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps a driver error with the store operation that produced it.
// It matches ErrStoreUnavailable under errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable.Error(), e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NotFoundError builds an ErrNotFound wrapped with the entity and id.
func NotFoundError(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
