package httpclient

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/kbukum/faultline/errors"
)

// Error is a failed request: either a non-2xx response or a request that
// never got one (StatusCode 0).
type Error struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s %s: HTTP %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("httpclient: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error { return e.Err }

// ClassifierInput describes the failure to the error classifier.
func (e *Error) ClassifierInput() errors.Input {
	if e.StatusCode == 0 {
		return errors.ConnectivityError{Err: e}
	}
	return errors.HTTPError{Status: e.StatusCode, Body: e.Body, Err: e.Err}
}

// StatusOf returns the response status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsConnection reports whether err is a request that never got a response.
func IsConnection(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.StatusCode == 0
}

var _ errors.Adapter = (*Error)(nil)
