// Package middleware composes the chain of responsibility that wraps every
// command dispatch: logging, recovery, and whatever else a caller registers
// before the handler itself runs.
package middleware

import (
	"log/slog"
	"sync"

	"github.com/cornellsh/signal-client/internal/ctxutil"
)

// NextFunc invokes the remainder of the chain (the next middleware, or the
// command handler if this is the last one).
type NextFunc func(ctx ctxutil.Context) error

// MiddlewareFunc may short-circuit by not calling next, replace the context
// passed to next, or wrap next in its own error handling/timing/metrics.
type MiddlewareFunc func(ctx ctxutil.Context, next NextFunc) error

// Chain holds an ordered, identity-deduplicated list of middleware.
type Chain struct {
	mu         sync.RWMutex
	middleware []MiddlewareFunc
	registered map[uintptr]struct{}
}

// NewChain constructs an empty Chain.
func NewChain() *Chain {
	return &Chain{registered: make(map[uintptr]struct{})}
}

// Use appends a middleware. Registration is idempotent on the function's
// underlying code pointer, matching the router's identity-based dedup.
func (c *Chain) Use(mw MiddlewareFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := funcIdentity(mw)
	if _, exists := c.registered[key]; exists {
		return
	}
	c.middleware = append(c.middleware, mw)
	c.registered[key] = struct{}{}
}

// Run composes the chain into nested continuations and invokes it, with
// handler as the terminal call.
func (c *Chain) Run(ctx ctxutil.Context, handler NextFunc) error {
	c.mu.RLock()
	mws := make([]MiddlewareFunc, len(c.middleware))
	copy(mws, c.middleware)
	c.mu.RUnlock()

	next := handler
	for i := len(mws) - 1; i >= 0; i-- {
		mw := mws[i]
		prev := next
		next = func(ctx ctxutil.Context) error {
			return mw(ctx, prev)
		}
	}
	return next(ctx)
}

// Logging logs command dispatch at debug level before the rest of the chain
// runs, and at warn level afterwards if the chain returned an error, matching the teacher's request-scoped logging middleware
// style (internal/middleware/tenant.go) generalized away from net/http.
func Logging(logger *slog.Logger) MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx ctxutil.Context, next NextFunc) error {
		logger.Debug("dispatching message",
			"source", ctx.Message.Source,
			"recipient", ctx.Message.Recipient(),
			"type", ctx.Message.Type,
		)
		err := next(ctx)
		if err != nil {
			logger.Warn("dispatch failed",
				"source", ctx.Message.Source,
				"recipient", ctx.Message.Recipient(),
				"error", err,
			)
		}
		return err
	}
}

// Recover converts a handler panic into an error so a single bad handler
// never kills a worker goroutine.
func Recover(logger *slog.Logger) MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx ctxutil.Context, next NextFunc) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panic recovered",
					"source", ctx.Message.Source,
					"panic", r,
				)
				err = &PanicError{Value: r}
			}
		}()
		return next(ctx)
	}
}

// PanicError wraps a recovered handler panic as a regular error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "middleware: handler panicked"
}
