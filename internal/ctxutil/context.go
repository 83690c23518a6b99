// Package ctxutil defines the per-dispatch Context handed to command
// handlers and middleware.
package ctxutil

import (
	gocontext "context"

	"github.com/cornellsh/signal-client/internal/message"
)

// Sender is the minimal surface Context needs to reply to, send to, or react
// on behalf of the bot. internal/signalapi.Clients satisfies it, delegating
// to its MessagesClient and ReactionsClient.
type Sender interface {
	Send(ctx gocontext.Context, number string, recipients []string, text string) (int64, error)
	React(ctx gocontext.Context, number string, recipient string, emoji string, targetAuthor string, targetTimestamp int64) error
}

// Context is the short-lived, per-dispatch value passed to middleware and
// command handlers. It is rebuilt for every dispatched message.
type Context struct {
	Go      gocontext.Context
	Message message.Message
	Sender  Sender

	// BotNumber is the bot's own registered Signal number, used as the
	// `number` path parameter on outbound calls.
	BotNumber string

	// Values carries middleware-injected, request-scoped data (mirroring
	// the way the teacher's tenant middleware stashes a tenant ID on the
	// request context). Middleware may read/write this map on a cloned
	// Context before calling next.
	Values map[string]any
}

// WithValue returns a shallow copy of ctx with key/val merged into Values.
// Middleware uses this to replace the Context passed to next without
// mutating the caller's copy.
func (c Context) WithValue(key string, val any) Context {
	next := c
	next.Values = make(map[string]any, len(c.Values)+1)
	for k, v := range c.Values {
		next.Values[k] = v
	}
	next.Values[key] = val
	return next
}

// Reply sends text back to the message's recipient (group or 1:1 source).
func (c Context) Reply(text string) error {
	_, err := c.Sender.Send(c.Go, c.BotNumber, []string{c.Message.Recipient()}, text)
	return err
}

// Send sends text to an explicit list of recipients.
func (c Context) Send(recipients []string, text string) error {
	_, err := c.Sender.Send(c.Go, c.BotNumber, recipients, text)
	return err
}

// React sends an emoji reaction targeting the dispatched message.
func (c Context) React(emoji string) error {
	return c.Sender.React(c.Go, c.BotNumber, c.Message.Recipient(), emoji, c.Message.Source, c.Message.Timestamp)
}
