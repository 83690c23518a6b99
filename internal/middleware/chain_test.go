package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornellsh/signal-client/internal/ctxutil"
	"github.com/cornellsh/signal-client/internal/message"
)

func blankContext() ctxutil.Context {
	return ctxutil.Context{Message: message.Message{Source: "+1"}}
}

func TestChain_RunsInOrderAndReachesHandler(t *testing.T) {
	c := NewChain()
	var order []string

	c.Use(func(ctx ctxutil.Context, next NextFunc) error {
		order = append(order, "first")
		return next(ctx)
	})
	c.Use(func(ctx ctxutil.Context, next NextFunc) error {
		order = append(order, "second")
		return next(ctx)
	})

	err := c.Run(blankContext(), func(ctx ctxutil.Context) error {
		order = append(order, "handler")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestChain_ShortCircuitSkipsRest(t *testing.T) {
	c := NewChain()
	handlerCalled := false

	c.Use(func(ctx ctxutil.Context, next NextFunc) error {
		return nil // never calls next
	})
	c.Use(func(ctx ctxutil.Context, next NextFunc) error {
		handlerCalled = true
		return next(ctx)
	})

	err := c.Run(blankContext(), func(ctx ctxutil.Context) error {
		handlerCalled = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, handlerCalled)
}

func TestChain_ReplacesContextPassedToNext(t *testing.T) {
	c := NewChain()
	c.Use(func(ctx ctxutil.Context, next NextFunc) error {
		return next(ctx.WithValue("injected", "yes"))
	})

	var seen any
	err := c.Run(blankContext(), func(ctx ctxutil.Context) error {
		seen = ctx.Values["injected"]
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "yes", seen)
}

func TestChain_RegistrationIdempotentOnIdentity(t *testing.T) {
	c := NewChain()
	mw := func(ctx ctxutil.Context, next NextFunc) error { return next(ctx) }
	c.Use(mw)
	c.Use(mw)
	assert.Len(t, c.middleware, 1)
}

func TestRecover_TurnsPanicIntoError(t *testing.T) {
	c := NewChain()
	c.Use(Recover(nil))

	err := c.Run(blankContext(), func(ctx ctxutil.Context) error {
		panic("boom")
	})

	require.Error(t, err)
	var perr *PanicError
	assert.ErrorAs(t, err, &perr)
}

func TestRecover_PassesThroughRegularError(t *testing.T) {
	c := NewChain()
	c.Use(Recover(nil))

	wantErr := errors.New("handler failed")
	err := c.Run(blankContext(), func(ctx ctxutil.Context) error {
		return wantErr
	})

	assert.Same(t, wantErr, err)
}
