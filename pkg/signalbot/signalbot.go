// Package signalbot is the public embedding surface for building a Signal
// chat bot on top of this module's internal runtime. It mirrors the
// original's `from signal_client import Context, SignalClient, command`
// pattern: construct a Client, register Commands, call Run.
//
// Quick start:
//
//	bot := signalbot.New(signalbot.Config{PhoneNumber: "+15551234567"})
//	bot.Handle("!ping", func(ctx signalbot.Context) error {
//	    return ctx.Reply("pong")
//	})
//	if err := bot.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Grounded on the teacher's pkg/sdk/client.go: a single Config struct with
// sane defaults, a constructor, and a small method surface that delegates to
// the internal packages doing the real work.
package signalbot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/cornellsh/signal-client/internal/checkpoint"
	"github.com/cornellsh/signal-client/internal/circuitbreaker"
	cfgpkg "github.com/cornellsh/signal-client/internal/config"
	"github.com/cornellsh/signal-client/internal/ctxutil"
	"github.com/cornellsh/signal-client/internal/dlq"
	"github.com/cornellsh/signal-client/internal/events"
	"github.com/cornellsh/signal-client/internal/httpclient"
	"github.com/cornellsh/signal-client/internal/listener"
	"github.com/cornellsh/signal-client/internal/lock"
	"github.com/cornellsh/signal-client/internal/message"
	"github.com/cornellsh/signal-client/internal/metrics"
	"github.com/cornellsh/signal-client/internal/middleware"
	"github.com/cornellsh/signal-client/internal/parser"
	"github.com/cornellsh/signal-client/internal/ratelimit"
	"github.com/cornellsh/signal-client/internal/router"
	"github.com/cornellsh/signal-client/internal/signalapi"
	"github.com/cornellsh/signal-client/internal/workerpool"
	"github.com/cornellsh/signal-client/internal/wsclient"
)

// Context is re-exported so handlers never need to import internal/ctxutil
// directly.
type Context = ctxutil.Context

// HandlerFunc is the function signature a registered command implements.
type HandlerFunc = router.HandlerFunc

// Config configures a Client. PhoneNumber and BaseURL are required; every
// other field falls back to internal/config's defaults when zero.
type Config struct {
	// PhoneNumber is the bot's registered Signal number.
	PhoneNumber string
	// BaseURL is the signal-cli REST API gateway, e.g. "http://localhost:8080".
	BaseURL string

	// Settings overrides the process-wide config.Get() singleton. Leave nil
	// to load from CONFIG_PATH/environment as usual.
	Settings *cfgpkg.Config

	Logger *slog.Logger
}

// Client is the embeddable Signal bot: register commands and middleware,
// then call Run to start the listener and worker pool.
type Client struct {
	cfg    Config
	logger *slog.Logger

	router *router.CommandRouter
	chain  *middleware.Chain

	httpClient *httpclient.Client
	clients    *signalapi.Clients
	metrics    *metrics.Metrics
	events     *events.Bus

	settings *cfgpkg.Config
}

// New constructs a Client. It does not connect to anything until Run is
// called.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := cfg.Settings
	if settings == nil {
		settings = cfgpkg.Get()
	}
	if cfg.PhoneNumber != "" {
		settings.PhoneNumber = cfg.PhoneNumber
	}
	if cfg.BaseURL != "" {
		settings.BaseURL = cfg.BaseURL
	}

	m := metrics.New()
	bus := events.NewBus(logger, 100)

	breaker := circuitbreaker.New(&circuitbreaker.Config{
		Name:        settings.BaseURL,
		MaxRequests: 1,
		Timeout:     time.Duration(settings.HTTP.CircuitBreaker.CooldownSec) * time.Second,
		ReadyToTrip: func(c circuitbreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(settings.HTTP.CircuitBreaker.FailureThreshold)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			logger.Info("circuit breaker state change", "name", name, "from", from, "to", to)
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			bus.Emit(events.TypeCircuitBreakerChanged, "httpclient", name, map[string]any{
				"from": from.String(), "to": to.String(),
			})
		},
	})

	limiter := ratelimit.New(settings.HTTP.RateLimit.Rate, settings.HTTP.RateLimit.Burst)

	endpointTimeouts := make(map[string]time.Duration, len(settings.HTTP.EndpointTimeouts))
	for prefix, secs := range settings.HTTP.EndpointTimeouts {
		endpointTimeouts[prefix] = time.Duration(secs * float64(time.Second))
	}

	httpCfg := &httpclient.Config{
		BaseURL:               settings.BaseURL,
		DefaultTimeout:        time.Duration(settings.HTTP.TimeoutSec * float64(time.Second)),
		EndpointTimeouts:      endpointTimeouts,
		Retries:               settings.HTTP.Retries,
		BackoffFactor:         time.Duration(settings.HTTP.BackoffFactor * float64(time.Second)),
		IdempotencyHeaderName: settings.HTTP.IdempotencyHeaderName,
	}

	hc := httpclient.New(httpCfg,
		httpclient.WithLimiter(limiter),
		httpclient.WithBreaker(breaker),
		httpclient.WithMetrics(m),
		httpclient.WithLogger(logger),
	)

	clients := signalapi.New(hc, settings.Bot.MaxAttachmentDownloadBytes)

	return &Client{
		cfg:        cfg,
		logger:     logger,
		router:     router.New(),
		chain:      middleware.NewChain(),
		httpClient: hc,
		clients:    clients,
		metrics:    m,
		events:     bus,
		settings:   settings,
	}
}

// Handle registers a handler for a literal prefix trigger, matching the
// original's `@command("!ping")` decorator. Equivalent to constructing a
// *router.Command with one trigger and calling Command.
func (c *Client) Handle(trigger string, handler HandlerFunc) {
	c.router.Register(&router.Command{
		Triggers: []router.Trigger{router.NewLiteralTrigger(trigger)},
		Handle:   handler,
	})
}

// HandleRegex registers a handler matched against a compiled regular
// expression searched anywhere in the message text.
func (c *Client) HandleRegex(re *regexp.Regexp, handler HandlerFunc) {
	c.router.Register(&router.Command{
		Triggers: []router.Trigger{router.NewRegexTrigger(re)},
		Handle:   handler,
	})
}

// Command registers a fully-specified command (multiple triggers, a
// whitelist, case sensitivity) for callers that need more than Handle
// offers.
func (c *Client) Command(cmd *router.Command) {
	c.router.Register(cmd)
}

// Use registers middleware run around every dispatched command, in
// registration order.
func (c *Client) Use(mw middleware.MiddlewareFunc) {
	c.chain.Use(mw)
}

// Events returns the bus lifecycle events are published on, letting an
// embedder observe dispatch/dead-letter/circuit-breaker activity.
func (c *Client) Events() *events.Bus {
	return c.events
}

// Clients exposes the underlying REST resource clients for callers that
// need more than Context.Reply/Send/React.
func (c *Client) Clients() *signalapi.Clients {
	return c.clients
}

// Run wires the listener, worker pool, and WebSocket stream together and
// blocks until ctx is cancelled or a SIGINT/SIGTERM is received, then stops
// the worker pool and waits for its tasks to exit. The pool runs on the same
// ctx, so messages still queued in the ingress or shard queues when ctx ends
// are not dispatched.
func (c *Client) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	chk, err := checkpoint.New(checkpoint.BackendConfig{
		Backend:        c.settings.Storage.Type,
		SQLitePath:     c.settings.Storage.SQLiteDB,
		RedisAddr:      redisAddr(c.settings),
		RedisDB:        c.settings.Storage.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("signalbot: checkpoint store: %w", err)
	}
	defer chk.Close()

	queue, err := dlq.New(ctx, dlq.BackendConfig{
		Backend:    c.settings.Storage.DLQBackend,
		SQLitePath: c.settings.Storage.SQLiteDB,
	})
	if err != nil {
		return fmt.Errorf("signalbot: dlq: %w", err)
	}
	defer queue.Close()

	ws := wsclient.New(wsclient.Config{
		BaseURL:     c.settings.BaseURL,
		PhoneNumber: c.settings.PhoneNumber,
		Logger:      c.logger,
	})

	lst := listener.New(listener.Config{
		QueueSize: c.settings.QueueSize,
		Policy:    listener.Policy(c.settings.Backpressure.Policy),
		Logger:    c.logger,
		Metrics:   c.metrics,
	})

	frames := ws.Listen(ctx)
	go lst.Run(ctx, frames)

	pool := workerpool.New(workerpool.Config{
		PoolSize:             c.settings.WorkerPoolSize,
		ShardCount:           c.settings.ShardCount,
		DispatchSyncMessages: c.settings.Bot.DispatchSyncMessages,
		Parser:               parser.New(),
		Router:               c.router,
		Chain:                c.chain,
		Checkpoint:           chk,
		DLQ:                  queue,
		Locks:                lock.NewManager(),
		Metrics:              c.metrics,
		Logger:               c.logger,
		Events:               c.events,
		BotNumber:            c.settings.PhoneNumber,
		Sender:               c.clients,
	}, c.settings.QueueSize)

	pool.Start(ctx)

	go func() {
		for frame := range lst.Ingress() {
			pool.Submit(&message.QueuedMessage{Raw: frame.Payload, EnqueuedAt: time.Now()})
		}
	}()

	<-ctx.Done()
	c.logger.Info("signalbot: shutting down")
	pool.Stop()
	pool.Join()
	return nil
}

func redisAddr(cfg *cfgpkg.Config) string {
	if cfg.Storage.RedisHost == "" {
		return ""
	}
	port := cfg.Storage.RedisPort
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", cfg.Storage.RedisHost, port)
}
