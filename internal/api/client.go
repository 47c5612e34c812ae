// Package api is the HTTP client for the career-document backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
	"careerkit/internal/session"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 16 << 20

// Endpoint families, used as rate-limit keys and metric labels
const (
	endpointGitHub     = "github"
	endpointGeneration = "generation"
	endpointDocuments  = "documents"
)

// Recorder receives per-request measurements
type Recorder interface {
	RecordAPIRequest(ctx context.Context, endpoint, method string, statusCode int, duration time.Duration, err error)
	RecordRateLimitWait(ctx context.Context, endpoint string, wait time.Duration)
}

// HTTPError is a non-2xx reply from the backend
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsNotFound reports whether err is a 404 reply
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsNotFound reports whether err is a 404 reply from this client
func (c *Client) IsNotFound(err error) bool { return IsNotFound(err) }

// StatusCode extracts the HTTP status from err, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Client talks to the backend on behalf of one session.
// Requests are never retried automatically.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	session    *session.Session
	breaker    *CircuitBreaker
	limiter    *LimiterManager
	recorder   Recorder
	logger     *errors.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRecorder sends request measurements to r
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// New creates a client for the configured backend
func New(cfg *config.APIConfig, sess *session.Session, logger *errors.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = errors.Discard()
	}
	c := &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		session: sess,
		breaker: NewCircuitBreaker("backend", &cfg.CircuitBreaker, logger),
		limiter: NewLimiterManager(&cfg.RateLimit),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats reports breaker and limiter state
func (c *Client) Stats() map[string]any {
	return map[string]any{
		"circuit_breaker": c.breaker.GetStats(),
		"rate_limiter":    c.limiter.GetStats(),
	}
}

// request describes one call
type request struct {
	endpoint string
	method   string
	path     string
	body     any
	out      any
	// accepted statuses; empty means any 2xx
	accept []int
}

func (c *Client) do(ctx context.Context, r request) error {
	start := time.Now()
	status, err := c.roundTrip(ctx, r)
	if c.recorder != nil {
		c.recorder.RecordAPIRequest(ctx, r.endpoint, r.method, status, time.Since(start), err)
	}
	if err != nil {
		c.logger.Debug("Backend request failed",
			"method", r.method,
			"path", r.path,
			"status", status,
			"error", err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request) (int, error) {
	wait, err := c.limiter.Wait(ctx, r.endpoint)
	if err != nil {
		return 0, errors.NewNetworkError(errors.ErrCodeRequestFailed, "rate limiter wait aborted", err)
	}
	if wait > time.Millisecond && c.recorder != nil {
		c.recorder.RecordRateLimitWait(ctx, r.endpoint, wait)
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return 0, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to encode request body", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return 0, errors.NewInternalError(errors.ErrCodeInvalidRequest, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	c.session.Apply(req)

	rep, err := c.breaker.Execute(func() (*reply, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, err
		}
		rep := &reply{status: resp.StatusCode, header: resp.Header, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return rep, errServerStatus
		}
		return rep, nil
	})

	if rep == nil {
		if isBreakerRejection(err) {
			return 0, errors.NewNetworkError(errors.ErrCodeCircuitOpen,
				"backend circuit breaker is open; try again shortly", err)
		}
		return 0, errors.NewNetworkError(errors.ErrCodeRequestFailed,
			fmt.Sprintf("%s %s failed", r.method, r.path), err).WithContext("endpoint", r.endpoint)
	}

	if !c.accepted(r.accept, rep.status) {
		httpErr := &HTTPError{
			Method:     r.method,
			Path:       r.path,
			StatusCode: rep.status,
			Body:       summarize(rep.body),
		}
		return rep.status, errors.NewNetworkError(errors.ErrCodeHTTPStatus, "backend rejected the request", httpErr).
			WithContext("status", rep.status)
	}

	if r.out != nil && len(bytes.TrimSpace(rep.body)) > 0 {
		if err := json.Unmarshal(rep.body, r.out); err != nil {
			return rep.status, errors.NewNetworkError(errors.ErrCodeDecodeResponse,
				fmt.Sprintf("failed to decode response of %s %s", r.method, r.path), err)
		}
	}
	return rep.status, nil
}

func (c *Client) accepted(accept []int, status int) bool {
	if len(accept) == 0 {
		return status >= 200 && status < 300
	}
	return slices.Contains(accept, status)
}

// summarize keeps error bodies short enough for a log line
func summarize(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

// buildPath escapes each segment and joins them under the root
func buildPath(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) resumePath(segments ...string) string {
	return buildPath(append([]string{"api", "v1", "resume", c.session.SpaceID}, segments...)...)
}

func (c *Client) aiPath(segments ...string) string {
	return buildPath(append([]string{"api", "v1", "ai", c.session.SpaceID}, segments...)...)
}
