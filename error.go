package demostf

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/demostf/go-client/download"
)

// maxErrBodySize caps the amount of response body read when building an
// error for an unexpected status code.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrInvalidBaseURL indicates the configured endpoint failed URL parsing.
	ErrInvalidBaseURL = errors.New("invalid base url")
	// ErrInvalidPage indicates a paged operation was called with page 0.
	// Pages start counting at 1.
	ErrInvalidPage = errors.New("invalid page requested")
	// ErrInvalidAPIKey indicates the server rejected the supplied key.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrHashMismatch indicates a content hash precondition failed, either
	// server-side on SetURL or locally after a verified download.
	ErrHashMismatch = download.ErrHashMismatch
	// ErrTimeout indicates a request exceeded its computed deadline.
	ErrTimeout = download.ErrTimeout
)

// WriteError is returned when the caller-supplied sink fails during a
// verified save.
type WriteError = download.WriteError

// ServerError is any 5xx response not otherwise classified.
type ServerError struct {
	Code int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("unknown server error %d", e.Code)
}

// InvalidResponseError is returned when an upload succeeded at the
// transport level but the response body did not carry a demo id. Body
// holds the raw response for diagnostics.
type InvalidResponseError struct {
	Body string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response: %s", e.Body)
}

// DemoNotFoundError is returned when no demo exists with the given id.
type DemoNotFoundError struct {
	ID uint32
}

func (e *DemoNotFoundError) Error() string {
	return fmt.Sprintf("demo %d not found", e.ID)
}

// UserNotFoundError is returned when no user exists with the given id.
type UserNotFoundError struct {
	ID uint32
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %d not found", e.ID)
}

// RequestError is the generic fallback for transport-level failures and
// unclassified status codes, carrying the underlying diagnostic.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed: %v", e.Err)
	}

	return fmt.Sprintf("request failed: status %d, body: %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// translateTransport classifies an error from the underlying transport.
// Deadline failures map to ErrTimeout so callers can tell a slow server
// apart from one that rejected the request; everything else is wrapped
// as a RequestError.
func translateTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	}

	return &RequestError{Err: err}
}
