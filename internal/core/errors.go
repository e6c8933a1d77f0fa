package core

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is against these.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStore        = errors.New("store failure")
	ErrNotFound     = errors.New("not found")
)

// Sentinels for the common input problems.
var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrAmountPrecision = errors.New("more than 2 decimal places")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidUserID   = errors.New("invalid user id")
	ErrInvalidPeriod   = errors.New("invalid filter")
	ErrInvalidDate     = errors.New("invalid date")
)

// ValidationError is a client fault on a single input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// StoreError reports a failed store operation. It is never used for empty results.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// StoreFailure wraps err as a StoreError unless it is nil or already classified.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) || errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
