package download

import (
	"context"
	"crypto/md5"
	"errors"
	"io"
	"iter"
	"net"
	"time"
)

// chunkSize is the read granularity for Save and Stream.Chunks.
const chunkSize = 32 << 10

// Timeout computes the effective deadline for transferring a demo that
// recorded durationSeconds of play. Demo files grow roughly one unit of
// size per minute of match time, so the base timeout is scaled
// accordingly: scale = max(durationSeconds/60, 15) / 15. Short demos
// keep the full base timeout (scale floors at 1), a 30 minute demo gets
// twice the base.
func Timeout(base time.Duration, durationSeconds uint16) time.Duration {
	scale := max(float64(durationSeconds)/60, 15) / 15

	return time.Duration(float64(base) * scale)
}

// Stream is a lazy, finite, single-consumption sequence of demo file
// bytes. It cannot be restarted; callers needing a second read must
// request a new download. Close releases the underlying connection and
// must be called when the stream is abandoned before EOF.
type Stream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

// NewStream wraps a response body and the cancel func guarding its
// deadline.
func NewStream(body io.ReadCloser, cancel context.CancelFunc) *Stream {
	return &Stream{body: body, cancel: cancel}
}

func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if err != nil && err != io.EOF {
		err = translate(err)
	}

	return n, err
}

func (s *Stream) Close() error {
	s.cancel()
	return s.body.Close()
}

// Chunks returns an iterator over the remaining bytes of the stream.
// Iteration stops at EOF; any other failure is yielded once with a nil
// chunk and ends the sequence. The stream is closed when iteration
// completes or is abandoned.
func (s *Stream) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		defer s.Close()

		buf := make([]byte, chunkSize)
		for {
			n, err := s.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// Save copies body to dst while feeding every chunk into an MD5
// accumulator, then compares the digest against expected. Chunks are
// written to dst as they arrive, so a failed transfer leaves its
// partial bytes in the sink. expected is the raw 16 byte digest.
func Save(body io.Reader, dst io.Writer, expected [md5.Size]byte) error {
	verifier := &digestVerifier{hash: md5.New(), expected: expected[:]}

	buf := make([]byte, chunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			// hash.Hash writes never fail
			verifier.Write(buf[:n])

			if _, werr := dst.Write(buf[:n]); werr != nil {
				return &WriteError{Err: werr}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return translate(err)
		}
	}

	return verifier.Verify()
}

// translate maps deadline failures to ErrTimeout so callers can tell a
// slow transfer apart from other transport errors.
func translate(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Err: ErrTimeout, Detail: err.Error()}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Err: ErrTimeout, Detail: err.Error()}
	}

	return err
}
