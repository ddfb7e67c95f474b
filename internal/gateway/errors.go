package gateway

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated indicates the store rejected the request's credentials,
// typically an expired or revoked token.
var ErrUnauthenticated = errors.New("gateway: unauthenticated")

// ConflictError reports that the store's authoritative check found an
// overlapping confirmed or active reservation. It is recoverable: the caller
// must refresh its reservation snapshot and offer a new slot selection.
type ConflictError struct {
	Detail    string
	Conflicts []Reservation
}

func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return fmt.Sprintf("gateway: reservation conflict: %s", e.Detail)
	}
	return fmt.Sprintf("gateway: reservation conflict with %d existing reservation(s)", len(e.Conflicts))
}

// TransportError wraps network failures and non-2xx responses unrelated to
// conflicts. It is surfaced verbatim to the caller; the client never retries.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConflict reports whether err carries an authoritative conflict rejection.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}
