// Package throttle rate limits outbound API calls with a token bucket,
// exposed as an http.RoundTripper. demos.tf asks heavy consumers to
// stay well below a handful of requests per second; wiring this into
// the client keeps bulk tooling from tripping the server's limits.
package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrInvalidRate  = errors.New("rate and burst must be greater than zero")
	ErrWaitFailed   = errors.New("limiter wait failed")
	ErrContextEnded = errors.New("throttle context ended")
)

// roundTripper delays requests through a token bucket before handing
// them to the next transport.
type roundTripper struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    http.RoundTripper
	logger  *slog.Logger
}

// NewRoundTripper returns an http.RoundTripper limiting outbound
// requests to rps requests per second with the given burst capacity.
func NewRoundTripper(rps, burst int, logger *slog.Logger, next http.RoundTripper) (http.RoundTripper, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] burst[%d]: %w", rps, burst, ErrInvalidRate)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &roundTripper{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logger:  logger,
	}, nil
}

func (t *roundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if !t.limiter.Allow() {
		start := time.Now()
		t.logger.Debug("throttle tokens exhausted", "rate", t.rps, "burst", t.burst, "path", r.URL.Path)

		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWaitFailed, err)
		}

		t.logger.Debug("throttle wait complete", "waited", time.Since(start).String(), "path", r.URL.Path)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
