package download

import (
	"errors"
	"fmt"
)

var (
	// ErrHashMismatch indicates the MD5 digest of the received bytes did
	// not match the expected value.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrTimeout indicates the transfer exceeded its computed deadline.
	ErrTimeout = errors.New("operation timed out")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WriteError is returned when the caller-supplied sink fails during a
// verified save. Bytes already written are left in place.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing demo data: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
