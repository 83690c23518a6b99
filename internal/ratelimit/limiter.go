// Package ratelimit provides the token-bucket acquire() contract the HTTP
// core blocks on before every outbound call (spec.md §4.4).
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate, already present in the teacher's
// transitive dependency graph (pulled in by google.golang.org/grpc) and the
// idiomatic Go token-bucket implementation — preferred here over a
// hand-rolled one.
type Limiter struct {
	limiter *rate.Limiter
}

// New constructs a Limiter with the given sustained rate (permits/second)
// and burst size.
func New(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Acquire blocks until a permit is available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Unlimited returns a Limiter that never blocks, used when rate limiting is
// not configured for a client.
func Unlimited() *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
}
