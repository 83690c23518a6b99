package httpclient

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// APIError is the base typed error every failed call surfaces as, carrying
// enough structure for callers to programmatically discover remediation
// (spec.md §7).
type APIError struct {
	Message string
	Status  int
	Body    []byte
	DocsURL string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("signal-client: %s (status=%d)", e.Message, e.Status)
}

// AuthenticationError is raised for HTTP 401.
type AuthenticationError struct{ *APIError }

// NotFoundError is raised for HTTP 404.
type NotFoundError struct{ *APIError }

// ConflictError is raised for HTTP 409.
type ConflictError struct{ *APIError }

// RateLimitError is raised for HTTP 429. Callers may retry honoring
// Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfterSec int
}

// ServerError is raised for HTTP >= 500. Transient — the HTTP core retries
// these internally before surfacing to the caller.
type ServerError struct{ *APIError }

// errorCodeEntry maps a normalized body error code to a doc anchor and a
// constructor for the typed error.
type errorCodeEntry struct {
	docsURL string
	build   func(base *APIError) error
}

// errorCodeTable mirrors the original base_client.py's ERROR_CODE_MAP: when
// the response body carries a normalized `code` field, it takes precedence
// over the HTTP status table.
var errorCodeTable = map[string]errorCodeEntry{
	"UNAUTHORIZED": {
		docsURL: "https://docs.signal-client.example/errors/authentication",
		build:   func(b *APIError) error { return &AuthenticationError{b} },
	},
	"NOT_FOUND": {
		docsURL: "https://docs.signal-client.example/errors/not-found",
		build:   func(b *APIError) error { return &NotFoundError{b} },
	},
	"CONFLICT": {
		docsURL: "https://docs.signal-client.example/errors/conflict",
		build:   func(b *APIError) error { return &ConflictError{b} },
	},
	"RATE_LIMITED": {
		docsURL: "https://docs.signal-client.example/errors/rate-limit",
		build:   func(b *APIError) error { return &RateLimitError{APIError: b} },
	},
	"INTERNAL_ERROR": {
		docsURL: "https://docs.signal-client.example/errors/server",
		build:   func(b *APIError) error { return &ServerError{b} },
	},
}

// classifyByStatus maps raw HTTP status to a typed error when the body carries no
// recognized `code` field, per spec.md §4.3 step 6.
func classifyByStatus(status int, base *APIError) error {
	switch {
	case status == 401:
		return &AuthenticationError{base}
	case status == 404:
		return &NotFoundError{base}
	case status == 409:
		return &ConflictError{base}
	case status == 429:
		return &RateLimitError{APIError: base}
	case status >= 500:
		return &ServerError{base}
	default:
		return base
	}
}

// withRetryAfter populates RetryAfterSec on err if it's a *RateLimitError
// and raw parses as either delay-seconds or an HTTP-date, per RFC 7231's
// Retry-After grammar. Any other error, or an unparseable/empty header, is
// returned unchanged.
func withRetryAfter(err error, raw string) error {
	if raw == "" {
		return err
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		return err
	}
	if secs, parseErr := strconv.Atoi(raw); parseErr == nil {
		rl.RetryAfterSec = secs
		return err
	}
	if when, parseErr := time.Parse(time.RFC1123, raw); parseErr == nil {
		if d := time.Until(when); d > 0 {
			rl.RetryAfterSec = int(d.Seconds())
		}
	}
	return err
}

// CircuitOpenError is surfaced when the client's circuit breaker rejects a
// call outright.
type CircuitOpenError struct{ Name string }

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("signal-client: circuit %q is open", e.Name)
}

// isTransient reports whether err should be retried: network errors,
// timeouts, and ServerError (5xx). Typed errors other than ServerError
// short-circuit retries.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *ServerError
	if errors.As(err, &se) {
		return true
	}
	var ae *AuthenticationError
	var ne *NotFoundError
	var ce *ConflictError
	var re *RateLimitError
	var co *CircuitOpenError
	var api *APIError
	if errors.As(err, &ae) || errors.As(err, &ne) || errors.As(err, &ce) || errors.As(err, &re) || errors.As(err, &co) || errors.As(err, &api) {
		return false
	}
	// Anything else (network error, context deadline, etc.) is transient.
	return true
}
