// Package httpclient is the runtime's HTTP core (spec.md §4.3): a single
// collaborator responsible for composing requests, enforcing per-endpoint
// timeouts, retrying transient failures with backoff, and classifying every
// non-2xx response into a typed error. Grounded on the teacher's
// pkg/sdk/client.go request/response plumbing and internal/webhooks/
// dispatcher.go's retry-with-backoff loop; wraps internal/ratelimit.Limiter
// and internal/circuitbreaker.CircuitBreaker rather than reimplementing
// either concern inline.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cornellsh/signal-client/internal/circuitbreaker"
	"github.com/cornellsh/signal-client/internal/metrics"
	"github.com/cornellsh/signal-client/internal/ratelimit"
)

// Client wraps an *http.Client with rate limiting, a circuit breaker, typed
// error classification, and retry-with-backoff.
type Client struct {
	httpClient *http.Client
	cfg        *Config
	limiter    *ratelimit.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Client at construction.
type Option func(*Client)

// WithLimiter overrides the default unlimited rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithBreaker overrides the default circuitbreaker.DefaultConfig breaker.
func WithBreaker(b *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithMetrics attaches a metrics.Metrics for HTTP call instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient overrides the underlying *http.Client (e.g. for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger overrides the default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New constructs a Client. cfg.BaseURL is required.
func New(cfg *Config, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
		limiter:    ratelimit.Unlimited(),
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig(cfg.BaseURL)),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues method/path with opts, retrying transient failures up to
// cfg.Retries times with cfg.BackoffFactor*2^attempt backoff, and decodes a
// JSON response body into out (nil skips decoding).
func (c *Client) Do(ctx context.Context, method, path string, opts RequestOptions, out any) error {
	retries := opts.Retries
	if retries == 0 {
		retries = c.cfg.Retries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BackoffFactor * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if c.metrics != nil {
				c.metrics.HTTPRetries.WithLabelValues(path).Inc()
			}
		}

		err := c.doOnce(ctx, method, path, opts, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, opts RequestOptions, out any) error {
	body, err := c.doOnceRaw(ctx, method, path, opts)
	if err != nil {
		return err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("httpclient: decoding response: %w", err)
		}
	}
	return nil
}

// doOnceRaw issues a single attempt and returns the raw response body,
// classifying non-2xx/3xx responses into a typed error per spec.md §4.3
// step 6. Used directly by DoRaw (attachment download) and wrapped by
// doOnce for JSON-decoding callers.
func (c *Client) doOnceRaw(ctx context.Context, method, path string, opts RequestOptions) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, &CircuitOpenError{Name: c.breaker.Name()}
	}
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	timeout := c.cfg.resolveTimeout(path, opts.Timeout)
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, method, path, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.Execute(func() error { return err })
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.Execute(func() error { return err })
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.HTTPCallDuration.WithLabelValues(method, path, fmt.Sprintf("%d", resp.StatusCode)).
			Observe(time.Since(start).Seconds())
	}

	if resp.StatusCode >= 400 {
		callErr := c.classify(resp.StatusCode, body, resp.Header.Get("Retry-After"))
		c.breaker.Execute(func() error { return callErr })
		return nil, callErr
	}
	c.breaker.Execute(func() error { return nil })
	return body, nil
}

// DoRaw is Do without JSON decoding: it returns the exact response bytes,
// used by attachment download where the body is an opaque blob rather than
// `Content-Type: application/json` (spec.md §4.3 step 5).
func (c *Client) DoRaw(ctx context.Context, method, path string, opts RequestOptions) ([]byte, error) {
	retries := opts.Retries
	if retries == 0 {
		retries = c.cfg.Retries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.BackoffFactor * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if c.metrics != nil {
				c.metrics.HTTPRetries.WithLabelValues(path).Inc()
			}
		}

		body, err := c.doOnceRaw(ctx, method, path, opts)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) buildRequest(ctx context.Context, method, path string, opts RequestOptions) (*http.Request, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(opts.Query) > 0 {
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("httpclient: parsing url: %w", err)
		}
		parsed.RawQuery = opts.Query.Encode()
		u = parsed.String()
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encoding body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: building request: %w", err)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	headers := c.cfg.composeHeaders(method, path, opts.Headers, opts.IdempotencyKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// classify maps a non-2xx response to a typed error, preferring a
// normalized `code` field in the body over the raw HTTP status. retryAfter
// is the raw `Retry-After` header value, if any, threaded onto a resulting
// RateLimitError per spec.md §7.
func (c *Client) classify(status int, body []byte, retryAfter string) error {
	base := &APIError{Status: status, Body: body, Message: http.StatusText(status)}

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Code != "" {
		if entry, ok := errorCodeTable[envelope.Code]; ok {
			if envelope.Message != "" {
				base.Message = envelope.Message
			}
			base.DocsURL = entry.docsURL
			return withRetryAfter(entry.build(base), retryAfter)
		}
	}
	return withRetryAfter(classifyByStatus(status, base), retryAfter)
}
