package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Store operations.
var (
	ErrListenerNotFound = errors.New("listener not found")
	ErrUnknownGetter    = errors.New("unknown derived getter")
	ErrUnregistered     = errors.New("store is unregistered")
)

// UndeclaredStateError reports a reference to a cell the store never
// declared.
type UndeclaredStateError struct {
	Store string
	Name  string
}

// Error implements the error interface.
func (e *UndeclaredStateError) Error() string {
	return fmt.Sprintf("undeclared state %q in store %s", e.Name, e.Store)
}

// IsUndeclaredState returns true if err is or wraps an *UndeclaredStateError.
func IsUndeclaredState(err error) bool {
	var ue *UndeclaredStateError
	return errors.As(err, &ue)
}
