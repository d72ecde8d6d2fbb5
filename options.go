package demostf

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/demostf/go-client/throttle"
)

// Option is a functional option for configuring a [Client] via [New].
type Option func(*options) error

type throttleConfig struct {
	rps   int
	burst int
}

type options struct {
	baseURL   string
	timeout   *time.Duration
	client    *http.Client
	rt        http.RoundTripper
	userAgent string
	accessKey string
	throttle  *throttleConfig
	logger    *slog.Logger
	tracer    trace.Tracer
}

// WithBaseURL points the client at a different API endpoint. The URL is
// normalized to a trailing slash so relative path joining is
// well-defined; an unparsable value surfaces as [ErrInvalidBaseURL]
// from [New].
func WithBaseURL(baseURL string) Option {
	return func(o *options) error {
		if baseURL == "" {
			return ErrInvalidBaseURL
		}
		o.baseURL = baseURL
		return nil
	}
}

// WithTimeout sets the base request timeout. Downloads scale this by
// the demo's duration, see [download.Timeout]. Defaults to 15 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		o.timeout = &d
		return nil
	}
}

// WithHTTPClient replaces the default [http.Client].
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		o.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		o.rt = rt
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing
// requests.
func WithUserAgent(header string) Option {
	return func(o *options) error {
		o.userAgent = header
		return nil
	}
}

// WithAccessKey sets the private-access token sent on list, get and
// chat reads. Upload and SetURL authenticate with a per-call key
// instead and ignore this value.
func WithAccessKey(key string) Option {
	return func(o *options) error {
		o.accessKey = key
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting of outbound requests
// with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d]: %w", rps, burst, throttle.ErrInvalidRate)
		}
		o.throttle = &throttleConfig{rps: rps, burst: burst}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithTracer sets the tracer used to record a span per operation. A
// no-op tracer is used when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// userAgent is an http.RoundTripper enabling the persistent User-Agent
// header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
