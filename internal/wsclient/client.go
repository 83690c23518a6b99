// Package wsclient maintains a reconnecting WebSocket stream to the Signal
// service and emits raw frames (spec.md §4.2, C2). Grounded on the teacher's
// internal/websocket/dag_streamer.go: adapted from a server-side
// "accept connections, broadcast to many clients" hub into a client-side
// dial-read-reconnect loop, keeping the same gorilla/websocket dependency
// and slog logging idiom.
package wsclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is a single message received from the stream, already decoded to
// text (binary frames are decoded as UTF-8 per spec.md §4.2).
type Frame struct {
	Payload string
}

// Config configures a Client.
type Config struct {
	// BaseURL is the Signal service's base, e.g. "ws://localhost:8080".
	BaseURL string
	// PhoneNumber identifies the receive stream: <BaseURL>/v1/receive/<phone>.
	PhoneNumber string
	// ReconnectDelay is how long to sleep after a closed connection before
	// redialing. Defaults to 1s, matching the original's reconnect delay.
	ReconnectDelay time.Duration

	Logger *slog.Logger
}

// Client dials a single reconnecting WebSocket stream.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

// New constructs a Client. Call Listen to start streaming frames.
func New(cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		logger: logger,
	}
}

// Listen connects, reads frames until the connection closes or errors, then
// reconnects after cfg.ReconnectDelay — forever, until ctx is cancelled.
// Frames are sent on the returned channel; the channel is closed when ctx is
// done.
func (c *Client) Listen(ctx context.Context) <-chan Frame {
	out := make(chan Frame)
	go c.run(ctx, out)
	return out
}

func (c *Client) run(ctx context.Context, out chan<- Frame) {
	defer close(out)

	uri := c.streamURL()
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := c.dialer.DialContext(ctx, uri, nil)
		if err != nil {
			c.logger.Warn("wsclient: dial failed, retrying", "error", err, "delay", c.cfg.ReconnectDelay)
			if !c.sleepOrDone(ctx, c.cfg.ReconnectDelay) {
				return
			}
			continue
		}

		c.logger.Info("wsclient: connected", "url", uri)
		closed := c.readLoop(ctx, conn, out)
		conn.Close()
		if !closed {
			return
		}

		c.logger.Warn("wsclient: connection closed, reconnecting", "delay", c.cfg.ReconnectDelay)
		if !c.sleepOrDone(ctx, c.cfg.ReconnectDelay) {
			return
		}
	}
}

// readLoop reads frames until the connection closes or ctx is cancelled. It
// returns true if the caller should reconnect (connection closed normally or
// with an error), false if ctx ended the loop.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- Frame) bool {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			return true
		}

		var text string
		switch msgType {
		case websocket.TextMessage:
			text = string(payload)
		case websocket.BinaryMessage:
			text = string(payload)
		default:
			continue
		}

		select {
		case out <- Frame{Payload: text}:
		case <-ctx.Done():
			return false
		}
	}
}

func (c *Client) sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) streamURL() string {
	base := c.cfg.BaseURL
	u, err := url.Parse(base)
	if err == nil {
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		}
		base = u.String()
	}
	return fmt.Sprintf("%s/v1/receive/%s", base, c.cfg.PhoneNumber)
}
