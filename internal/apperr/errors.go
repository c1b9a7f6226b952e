// Package apperr defines the error kinds shared by the storage, content and
// API layers. Callers classify failures with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrMalformed          = errors.New("malformed document")
)

// Validation wraps err so that it matches ErrValidation while keeping the
// original message (ozzo validation.Errors renders field-by-field).
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Unavailable wraps a transient backend failure.
func Unavailable(backend string, err error) error {
	return fmt.Errorf("%s: %w: %w", backend, ErrBackendUnavailable, err)
}
