package actions

import (
	"errors"
	"fmt"
)

// ErrNoRequester is returned by Context.Request and Resource operations on a
// Group built without WithRequester.
var ErrNoRequester = errors.New("group has no requester")

// ReservedFieldError reports a dispatch payload that carries a reserved key.
type ReservedFieldError struct {
	Action string
	Field  string
}

// Error implements the error interface.
func (e *ReservedFieldError) Error() string {
	return fmt.Sprintf("%s: do not assign property %q to a dispatchable object", e.Action, e.Field)
}

// IsReservedField returns true if err is or wraps a *ReservedFieldError.
func IsReservedField(err error) bool {
	var re *ReservedFieldError
	return errors.As(err, &re)
}
