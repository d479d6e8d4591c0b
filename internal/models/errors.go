package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no task row exists for the id. A cache miss alone
	// never produces it.
	ErrNotFound = errors.New("task not found")
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable wraps failures and timeouts of the task store.
	ErrStoreUnavailable = errors.New("task store unavailable")
	// ErrCacheDegraded wraps cache failures. It is logged and absorbed, never
	// returned to API callers.
	ErrCacheDegraded = errors.New("task cache degraded")
)

// ValidationError reports one invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// WrapStoreError marks a store failure as ErrStoreUnavailable. Not-found,
// validation and already-marked errors pass through unchanged.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
