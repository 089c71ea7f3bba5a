package storage

import (
	"errors"
	"fmt"
)

// ErrForeignURL means a delete was asked for a URL that does not point
// into this client's bucket host.
var ErrForeignURL = errors.New("storage: url does not belong to configured bucket")

// ErrEmptyKey means an operation was given no object key to work with.
var ErrEmptyKey = errors.New("storage: empty object key")

// TransportError wraps a connection-level failure (DNS, TLS, timeout).
// These never reached the provider, so the caller may retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("storage: %s transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError is a non-2xx answer from the provider, surfaced with
// the raw status and body for diagnosis (bad signature, clock skew,
// missing object, ...).
type RejectionError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("storage: %s rejected: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// AsRejection unwraps err into a RejectionError, if it is one.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
