package httpclient

import (
	"net/url"
	"strings"
	"time"
)

// HeaderProvider is consulted for every call, given the method and path, to
// produce dynamic headers (e.g. a freshly-signed auth token).
type HeaderProvider func(method, path string) map[string]string

// RequestOptions configures a single call to Client.Do.
type RequestOptions struct {
	Body           any
	Headers        map[string]string
	Timeout        time.Duration // zero means "resolve from the endpoint table"
	Retries        int           // zero means "use the client default"
	IdempotencyKey string
	Query          url.Values
}

// Config configures a Client's defaults.
type Config struct {
	BaseURL string

	DefaultHeaders  map[string]string
	HeaderProvider  HeaderProvider
	DefaultTimeout  time.Duration
	EndpointTimeouts map[string]time.Duration

	Retries               int
	BackoffFactor         time.Duration
	IdempotencyHeaderName string
}

// resolveTimeout implements spec.md §4.3 step 2: request-scoped timeout
// wins; else the longest matching path-prefix entry in the timeout table;
// else the default.
func (c *Config) resolveTimeout(path string, requestTimeout time.Duration) time.Duration {
	if requestTimeout > 0 {
		return requestTimeout
	}

	var best string
	var bestTimeout time.Duration
	for prefix, timeout := range c.EndpointTimeouts {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
			best = prefix
			bestTimeout = timeout
		}
	}
	if best != "" {
		return bestTimeout
	}

	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return 30 * time.Second
}

// composeHeaders implements spec.md §4.3 step 1: defaults ← dynamic
// provider ← explicit/request-scoped headers, with the idempotency key
// written last into the configured header name. requestHeaders carries
// both the "explicit headers" and "request-scoped headers" layers the spec
// names separately — this client exposes a single per-call Headers map, so
// the two collapse into one layer that wins over the provider.
func (c *Config) composeHeaders(method, path string, requestHeaders map[string]string, idempotencyKey string) map[string]string {
	out := make(map[string]string, len(c.DefaultHeaders)+len(requestHeaders)+1)
	for k, v := range c.DefaultHeaders {
		out[k] = v
	}
	if c.HeaderProvider != nil {
		for k, v := range c.HeaderProvider(method, path) {
			out[k] = v
		}
	}
	for k, v := range requestHeaders {
		out[k] = v
	}
	if idempotencyKey != "" {
		name := c.IdempotencyHeaderName
		if name == "" {
			name = "Idempotency-Key"
		}
		out[name] = idempotencyKey
	}
	return out
}
