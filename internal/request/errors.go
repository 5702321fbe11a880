package request

import (
	"errors"
	"fmt"
	"net/http"
)

// Definition errors returned synchronously by Issue.
var (
	ErrMissingID = errors.New("request id missing")
	ErrVerb      = errors.New("request must declare exactly one of get, post, put, del")
)

// RequestError is a failed transport call.
type RequestError struct {
	Method string
	URL    string

	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int

	// Body is the decoded error response, if any.
	Body any

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("%s %s: request failed", e.Method, e.URL)
	}
}

// Unwrap returns the underlying transport error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError returns true if err is or wraps a *RequestError.
func IsRequestError(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
