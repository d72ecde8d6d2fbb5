package demostf

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/demostf/go-client/download"
	"github.com/demostf/go-client/throttle"
)

// DefaultBaseURL is the public production demos.tf API endpoint.
const DefaultBaseURL = "https://api.demos.tf/"

// DefaultTimeout is the base request timeout when none is configured.
const DefaultTimeout = 15 * time.Second

// accessKeyHeader carries the private-access token on reads. Earlier
// revisions of the API client sent ACCESS_KEY on some paths; the
// hyphenated spelling is canonical here since underscored header names
// are dropped by several proxy layers.
const accessKeyHeader = "ACCESS-KEY"

// Client is a typed client for the demos.tf API. It holds only
// immutable configuration, so a single instance is safe for concurrent
// use without external synchronization. Every operation performs
// exactly one HTTP round trip; there are no retries and no caching.
type Client struct {
	hc          *http.Client
	baseURL     *url.URL
	baseTimeout time.Duration
	accessKey   string
	logger      *slog.Logger
	tracer      trace.Tracer
}

// New builds a Client for the demos.tf API. Without options it talks to
// [DefaultBaseURL] with a 15 second base timeout.
func New(optFns ...Option) (*Client, error) {
	client := &Client{
		hc:          &http.Client{},
		baseTimeout: DefaultTimeout,
		logger:      slog.Default(),
		tracer:      noop.NewTracerProvider().Tracer("demostf"),
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	raw := opts.baseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, ErrInvalidBaseURL
	}
	// guarantee a trailing slash so relative path joining is well-defined
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	client.baseURL = base

	if opts.client != nil {
		client.hc = opts.client
	}
	if opts.timeout != nil {
		client.baseTimeout = *opts.timeout
	}
	if opts.accessKey != "" {
		client.accessKey = opts.accessKey
	}
	if opts.logger != nil {
		client.logger = opts.logger
	}
	if opts.tracer != nil {
		client.tracer = opts.tracer
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.rps, opts.throttle.burst, client.logger, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.hc.Transport = transport

	return client, nil
}

// SetAccessKey sets the private-access token sent on list, get and chat
// reads. Call it before sharing the client across goroutines; the
// client performs no locking.
func (c *Client) SetAccessKey(accessKey string) {
	c.accessKey = accessKey
}

// BaseURL returns the normalized endpoint this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// List fetches a page of demos matching params. Pages start counting
// at 1; page 0 fails with [ErrInvalidPage] before any network access.
func (c *Client) List(ctx context.Context, params ListParams, page uint32) ([]Demo, error) {
	ctx, span := c.tracer.Start(ctx, "demostf.list", trace.WithAttributes(
		attribute.Int("page", int(page)),
	))
	defer span.End()

	return c.listURL(ctx, c.url("demos"), params, page)
}

// ListUploads fetches a page of demos uploaded by the given user.
// Pages start counting at 1; page 0 fails with [ErrInvalidPage] before
// any network access.
func (c *Client) ListUploads(ctx context.Context, uploader SteamID, params ListParams, page uint32) ([]Demo, error) {
	ctx, span := c.tracer.Start(ctx, "demostf.list_uploads", trace.WithAttributes(
		attribute.String("uploader", uploader.String()),
		attribute.Int("page", int(page)),
	))
	defer span.End()

	return c.listURL(ctx, c.url("uploads", uploader.String()), params, page)
}

func (c *Client) listURL(ctx context.Context, u *url.URL, params ListParams, page uint32) ([]Demo, error) {
	if page == 0 {
		return nil, ErrInvalidPage
	}

	query := params.Values()
	query.Set("page", strconv.FormatUint(uint64(page), 10))
	u.RawQuery = query.Encode()

	var demos []Demo
	if err := c.getJSON(ctx, u, true, &demos, nil); err != nil {
		return nil, err
	}

	return demos, nil
}

// Get fetches a single demo by id, including its full player list.
func (c *Client) Get(ctx context.Context, demoID uint32) (Demo, error) {
	ctx, span := c.tracer.Start(ctx, "demostf.get", trace.WithAttributes(
		attribute.Int("demo.id", int(demoID)),
	))
	defer span.End()

	var demo Demo
	err := c.getJSON(ctx, c.url("demos", formatID(demoID)), true, &demo, &DemoNotFoundError{ID: demoID})

	return demo, err
}

// GetUser fetches a single user by id.
func (c *Client) GetUser(ctx context.Context, userID uint32) (User, error) {
	ctx, span := c.tracer.Start(ctx, "demostf.get_user", trace.WithAttributes(
		attribute.Int("user.id", int(userID)),
	))
	defer span.End()

	var user User
	err := c.getJSON(ctx, c.url("users", formatID(userID)), false, &user, &UserNotFoundError{ID: userID})

	return user, err
}

// SearchUsers searches users by display name. The result may be empty.
func (c *Client) SearchUsers(ctx context.Context, name string) ([]User, error) {
	ctx, span := c.tracer.Start(ctx, "demostf.search_users")
	defer span.End()

	u := c.url("users", "search")
	u.RawQuery = url.Values{"query": {name}}.Encode()

	var users []User
	if err := c.getJSON(ctx, u, false, &users, nil); err != nil {
		return nil, err
	}

	return users, nil
}

// GetChat fetches the ordered chat transcript of a demo.
func (c *Client) GetChat(ctx context.Context, demoID uint32) ([]ChatMessage, error) {
	ctx, span := c.tracer.Start(ctx, "demostf.get_chat", trace.WithAttributes(
		attribute.Int("demo.id", int(demoID)),
	))
	defer span.End()

	var chat []ChatMessage
	if err := c.getJSON(ctx, c.url("demos", formatID(demoID), "chat"), true, &chat, &DemoNotFoundError{ID: demoID}); err != nil {
		return nil, err
	}

	return chat, nil
}

// SetURL updates the storage location metadata of a demo. hash must be
// the demo's current known content hash; the server rejects a stale
// value with [ErrHashMismatch] to prevent racing overwrites. key
// authenticates the call independent of the client's access key.
func (c *Client) SetURL(ctx context.Context, demoID uint32, backend, path, demoURL string, hash Digest, key string) error {
	ctx, span := c.tracer.Start(ctx, "demostf.set_url", trace.WithAttributes(
		attribute.Int("demo.id", int(demoID)),
		attribute.String("backend", backend),
	))
	defer span.End()

	if err := checkInput(setURLInput{Backend: backend, Path: path, URL: demoURL, Key: key}); err != nil {
		return err
	}

	form := url.Values{
		"hash":    {hash.String()},
		"backend": {backend},
		"url":     {demoURL},
		"path":    {path},
		"key":     {key},
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.url("demos", formatID(demoID), "url"), strings.NewReader(form.Encode()), false)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.exec(req, &DemoNotFoundError{ID: demoID}, nil)
}

// Upload submits a new demo file. red and blue are the team names, key
// authenticates the upload. It returns the newly created demo's id,
// parsed from the final path segment of the response body.
func (c *Client) Upload(ctx context.Context, fileName string, body []byte, red, blue, key string) (uint32, error) {
	ctx, span := c.tracer.Start(ctx, "demostf.upload", trace.WithAttributes(
		attribute.String("file", fileName),
	))
	defer span.End()

	if err := checkInput(uploadInput{Name: fileName, Red: red, Blue: blue, Key: key}); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"red", red},
		{"blue", blue},
		{"name", fileName},
		{"key", key},
	}
	for _, field := range fields {
		if err := form.WriteField(field.name, field.value); err != nil {
			return 0, fmt.Errorf("building upload form: %w", err)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="demo"; filename="demo.dem"`)
	header.Set("Content-Type", "text/plain")
	part, err := form.CreatePart(header)
	if err != nil {
		return 0, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return 0, fmt.Errorf("building upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("building upload form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.url("upload"), &buf, false)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var respBody string
	readBody := func(resp *http.Response) error {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return &RequestError{Err: fmt.Errorf("reading upload response: %w", err)}
		}
		respBody = string(b)
		return nil
	}

	if err := c.exec(req, nil, readBody); err != nil {
		return 0, err
	}

	// a well-formed response is a URL whose final path segment is the
	// new demo's id; "Invalid key" is a protocol-level error signal
	// sent with a success status
	if respBody == "Invalid key" {
		return 0, ErrInvalidAPIKey
	}

	tail := respBody
	if idx := strings.LastIndex(respBody, "/"); idx >= 0 {
		tail = respBody[idx+1:]
	}
	id, err := strconv.ParseUint(tail, 10, 32)
	if err != nil {
		return 0, &InvalidResponseError{Body: respBody}
	}

	return uint32(id), nil
}

// downloadDemo fetches a demo file from its storage URL with a deadline
// scaled by the demo's duration. The returned stream owns the deadline;
// closing it releases the connection.
func (c *Client) downloadDemo(ctx context.Context, rawURL string, duration uint16) (*download.Stream, error) {
	timeout := download.Timeout(c.baseTimeout, duration)
	ctx, cancel := context.WithTimeout(ctx, timeout)

	c.logger.Debug("requesting demo file", "url", rawURL, "timeout", timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.hc.Do(req)
	if err != nil {
		cancel()
		return nil, translateTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		err := c.classifyStatus(resp, nil)
		c.discard(resp)
		cancel()
		return nil, err
	}

	return download.NewStream(resp.Body, cancel), nil
}

// saveDemo streams a demo file into w while verifying its content hash.
func (c *Client) saveDemo(ctx context.Context, demo *Demo, w io.Writer) error {
	stream, err := c.downloadDemo(ctx, demo.URL, demo.Duration)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := download.Save(stream, w, [md5.Size]byte(demo.Hash)); err != nil {
		c.logger.Error("demo save failed", "id", demo.ID, "url", demo.URL, "error", err)
		return err
	}

	return nil
}

// url joins path segments onto the base URL.
func (c *Client) url(segments ...string) *url.URL {
	return c.baseURL.JoinPath(segments...)
}

// newRequest builds a request carrying a fresh request id, and the
// access key when withKey is set and one is configured.
func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader, withKey bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("instantiating request: %w", err)}
	}

	req.Header.Set("X-Request-Id", uuid.NewString())
	if withKey && c.accessKey != "" {
		req.Header.Set(accessKeyHeader, c.accessKey)
	}

	return req, nil
}

// getJSON performs a GET against u and decodes the response into dst.
func (c *Client) getJSON(ctx context.Context, u *url.URL, withKey bool, dst any, notFound error) error {
	req, err := c.newRequest(ctx, http.MethodGet, u, nil, withKey)
	if err != nil {
		return err
	}

	decode := func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return &RequestError{Err: fmt.Errorf("decoding body: %w", err)}
		}
		return nil
	}

	return c.exec(req, notFound, decode)
}

// execFn operates on a successful response.
type execFn func(resp *http.Response) error

// exec runs the request under the base timeout, classifies the outcome
// into the error taxonomy and hands a successful response to fn.
func (c *Client) exec(req *http.Request, notFound error, fn execFn) error {
	ctx, cancel := context.WithTimeout(req.Context(), c.baseTimeout)
	defer cancel()

	resp, err := c.hc.Do(req.WithContext(ctx))
	if err != nil {
		return translateTransport(err)
	}
	defer c.discard(resp)

	if err := c.classifyStatus(resp, notFound); err != nil {
		return err
	}

	if fn != nil {
		if err := fn(resp); err != nil {
			return err
		}
	}

	return nil
}

// classifyStatus maps a non-success status onto the error taxonomy.
func (c *Client) classifyStatus(resp *http.Response, notFound error) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		return notFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrInvalidAPIKey
	case resp.StatusCode == http.StatusPreconditionFailed:
		return ErrHashMismatch
	case resp.StatusCode >= 500:
		return &ServerError{Code: resp.StatusCode}
	default:
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}
		return &RequestError{StatusCode: resp.StatusCode, Body: string(b)}
	}
}

// discard drains and closes a response body so the underlying
// connection can be reused.
func (c *Client) discard(resp *http.Response) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
