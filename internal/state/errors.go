package state

import (
	"errors"
	"fmt"
)

// ValidationError reports a value rejected by a cell's pipeline.
type ValidationError struct {
	// Cell is the qualified cell name ("namespace:name").
	Cell string

	// Value is the rejected input.
	Value any

	// Reason describes which check failed.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cell == "" {
		return fmt.Sprintf("invalid value %v: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid value for %s: %s", e.Cell, e.Reason)
}

// ProtectedAccessError reports a read of a protected cell.
type ProtectedAccessError struct {
	Namespace string
	Name      string
}

// Error implements the error interface.
func (e *ProtectedAccessError) Error() string {
	return fmt.Sprintf("cannot access protected state %s:%s", e.Namespace, e.Name)
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsProtected returns true if err is or wraps a *ProtectedAccessError.
func IsProtected(err error) bool {
	var pe *ProtectedAccessError
	return errors.As(err, &pe)
}
