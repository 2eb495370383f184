// Package api is the typed client for the AIC HUB REST API.
//
// Every page, hook and CLI command goes through one *Client. It owns:
//   - the cookie jar that carries the HttpOnly session cookie between calls
//   - JSON encoding of request bodies and decoding of responses
//   - error normalization: transport failures become *apperror.NetworkError,
//     non-2xx answers become *apperror.HTTPError{Status, Message}
//
// Nothing here retries. A failed call is reported once and the caller decides
// whether to offer a retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/aic-hub/internal/apperror"
)

// DefaultTimeout bounds a single request, including reading the body.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per-request id so client and server logs line up.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 1 << 20

// Client talks to one API origin.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its Jar is kept if set,
// otherwise a fresh in-memory jar is attached.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithJar sets the cookie jar, e.g. a persisted *FileJar.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) { c.http.Jar = jar }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for request tracing (debug level).
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the API at baseURL (scheme and host, optional path prefix).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parsing base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("api: creating cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Jar returns the cookie jar holding the session.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// URL resolves an API path ("/api/articles?skip=0") against the base URL.
func (c *Client) URL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + ref.Path
	u.RawQuery = ref.RawQuery
	return u.String()
}

// Do sends one JSON request and decodes a 2xx body into out.
//
// body is encoded as JSON when non-nil. out may be nil to discard the body;
// a 204 response never touches out. Non-2xx answers return *apperror.HTTPError
// with the server's message, transport failures *apperror.NetworkError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, c.http, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("api: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// send builds and issues the request, logging it at debug level.
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("api: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return nil, &apperror.NetworkError{Op: method + " " + path, Err: err}
	}

	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
		slog.String("request_id", requestID),
	)
	return resp, nil
}

// decodeError reads the server's message out of an error body.
//
// The stand-in answers {"error": "...", "message": "..."}; other deployments
// answer {"detail": "..."} or {"detail": {"message": "..."}}. Anything else
// falls back to "Request failed with status N".
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	message := ""
	if err := json.Unmarshal(raw, &payload); err == nil {
		message = payload.Message
		if message == "" && len(payload.Detail) > 0 {
			message = detailMessage(payload.Detail)
		}
	}
	return apperror.NewHTTPError(resp.StatusCode, message)
}

func detailMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	return ""
}

// query is a small helper for building list query strings.
type query struct {
	v url.Values
}

func newQuery() *query { return &query{v: url.Values{}} }

func (q *query) str(key, value string) *query {
	if value != "" {
		q.v.Set(key, value)
	}
	return q
}

func (q *query) strs(key string, values []string) *query {
	for _, v := range values {
		q.v.Add(key, v)
	}
	return q
}

func (q *query) num(key string, n int) *query {
	if n > 0 {
		q.v.Set(key, fmt.Sprint(n))
	}
	return q
}

// always writes n, including zero (skip=0 is meaningful).
func (q *query) always(key string, n int) *query {
	q.v.Set(key, fmt.Sprint(n))
	return q
}

func (q *query) flag(key string, on bool) *query {
	if on {
		q.v.Set(key, "true")
	}
	return q
}

func (q *query) path(p string) string {
	if len(q.v) == 0 {
		return p
	}
	return p + "?" + q.v.Encode()
}
