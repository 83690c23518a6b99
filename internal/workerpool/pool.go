// Package workerpool implements the sharded worker pool (spec.md §4.6, C8):
// one distributor task routes parsed/raw messages to shard queues by CRC32 of
// the recipient, and pool-size worker tasks each drain one shard, running
// dedup, per-recipient locking, command matching, and the middleware chain.
// Grounded on the teacher's internal/webhooks/dispatcher.go worker-pool-over-
// a-channel shape, generalized from a flat pool into CRC32-sharded queues
// with per-recipient ordering via internal/lock.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cornellsh/signal-client/internal/checkpoint"
	"github.com/cornellsh/signal-client/internal/ctxutil"
	"github.com/cornellsh/signal-client/internal/dlq"
	"github.com/cornellsh/signal-client/internal/events"
	"github.com/cornellsh/signal-client/internal/lock"
	"github.com/cornellsh/signal-client/internal/message"
	"github.com/cornellsh/signal-client/internal/metrics"
	"github.com/cornellsh/signal-client/internal/middleware"
	"github.com/cornellsh/signal-client/internal/parser"
	"github.com/cornellsh/signal-client/internal/router"
)

// pollInterval bounds every queue poll so stop() is observed promptly
// instead of blocking a worker or the distributor indefinitely.
const pollInterval = 1 * time.Second

// Config configures a Pool.
type Config struct {
	PoolSize   int
	ShardCount int // defaults to PoolSize; must be <= PoolSize

	// DispatchSyncMessages gates whether SYNC-typed messages are routed
	// through the router at all (SPEC_FULL.md Open Question 4).
	DispatchSyncMessages bool

	Parser     *parser.Parser
	Router     *router.CommandRouter
	Chain      *middleware.Chain
	Checkpoint checkpoint.Store
	DLQ        dlq.Queue
	Locks      *lock.Manager
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	// Events receives lifecycle notifications (dispatched, dead-lettered,
	// duplicate-dropped); nil disables emission.
	Events events.Emitter

	// BotNumber and Sender populate ctxutil.Context for handler dispatch.
	BotNumber string
	Sender    ctxutil.Sender
}

// Pool is the sharded worker pool. Construct with New, feed ingress with
// Submit, and call Start/Stop/Join to manage its lifecycle.
type Pool struct {
	cfg Config

	ingress chan *message.QueuedMessage
	shards  []chan *message.QueuedMessage

	stop chan struct{}
	wg   sync.WaitGroup

	logger *slog.Logger
}

// New constructs a Pool. ingressCapacity sizes the ingress queue; each shard
// is sized ceil(ingressCapacity / shardCount) per spec.md §4.6.
func New(cfg Config, ingressCapacity int) *Pool {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 8
	}
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = cfg.PoolSize
	}
	if cfg.ShardCount > cfg.PoolSize {
		cfg.ShardCount = cfg.PoolSize
	}
	if ingressCapacity <= 0 {
		ingressCapacity = 1000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shardCapacity := (ingressCapacity + cfg.ShardCount - 1) / cfg.ShardCount
	shards := make([]chan *message.QueuedMessage, cfg.ShardCount)
	for i := range shards {
		shards[i] = make(chan *message.QueuedMessage, shardCapacity)
	}

	return &Pool{
		cfg:     cfg,
		ingress: make(chan *message.QueuedMessage, ingressCapacity),
		shards:  shards,
		stop:    make(chan struct{}),
		logger:  logger,
	}
}

// Submit enqueues a wrapped frame onto the ingress queue. The caller supplies
// qm.Raw and qm.Ack; qm.Message may be nil if parsing hasn't happened yet.
func (p *Pool) Submit(qm *message.QueuedMessage) bool {
	if p.stopping() {
		return false
	}
	select {
	case p.ingress <- qm:
		return true
	case <-p.stop:
		return false
	}
}

// Start launches the distributor and pool-size worker tasks.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.distribute(ctx)

	for i := 0; i < p.cfg.PoolSize; i++ {
		shardIdx := i % len(p.shards)
		p.wg.Add(1)
		go p.work(ctx, i, shardIdx)
	}
}

// Stop signals every task to drain and exit once its queue is empty.
func (p *Pool) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
}

// Join awaits every worker and distributor task.
func (p *Pool) Join() {
	p.wg.Wait()
}

func (p *Pool) distribute(ctx context.Context) {
	defer p.wg.Done()

	for {
		qm, ok := p.pollIngress(ctx)
		if !ok {
			if p.stopping() && len(p.ingress) == 0 {
				return
			}
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if qm.Message == nil {
			parsed, err := p.cfg.Parser.Parse(qm.Raw)
			if err != nil {
				if !errors.Is(err, parser.ErrUnsupported) {
					p.sendToDLQ(ctx, qm.Raw, "parse_error", map[string]any{"error": err.Error()})
				}
				if qm.Ack != nil {
					qm.Ack()
				}
				continue
			}
			qm.Message = parsed
		}

		recipient := qm.Message.Recipient()
		if recipient == "" {
			recipient = p.cfg.Parser.RecipientFromRaw(qm.Raw)
		}
		qm.Recipient = recipient

		shardIdx := p.shardFor(recipient)
		select {
		case p.shards[shardIdx] <- qm:
		case <-ctx.Done():
			return
		}
	}
}

// shardFor computes spec.md §4.6's CRC32(recipient) mod shard_count; an
// empty recipient routes to shard 0.
func (p *Pool) shardFor(recipient string) int {
	if recipient == "" {
		return 0
	}
	return int(crc32.ChecksumIEEE([]byte(recipient))) % len(p.shards)
}

func (p *Pool) pollIngress(ctx context.Context) (*message.QueuedMessage, bool) {
	select {
	case qm := <-p.ingress:
		return qm, true
	case <-ctx.Done():
		return nil, false
	case <-time.After(pollInterval):
		return nil, false
	}
}

func (p *Pool) stopping() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *Pool) work(ctx context.Context, workerID, shardIdx int) {
	defer p.wg.Done()
	shard := p.shards[shardIdx]

	for {
		qm, ok := p.pollShard(ctx, shard)
		if !ok {
			if p.stopping() && len(shard) == 0 {
				return
			}
			if ctx.Err() != nil {
				return
			}
			continue
		}
		p.handle(ctx, workerID, shardIdx, qm)
	}
}

func (p *Pool) pollShard(ctx context.Context, shard chan *message.QueuedMessage) (*message.QueuedMessage, bool) {
	select {
	case qm := <-shard:
		return qm, true
	case <-ctx.Done():
		return nil, false
	case <-time.After(pollInterval):
		return nil, false
	}
}

func (p *Pool) handle(ctx context.Context, workerID, shardIdx int, qm *message.QueuedMessage) {
	defer func() {
		if qm.Ack != nil {
			qm.Ack()
		}
	}()

	if p.cfg.Metrics != nil {
		p.cfg.Metrics.QueueLatency.WithLabelValues(strconv.Itoa(shardIdx)).
			Observe(time.Since(qm.EnqueuedAt).Seconds())
	}

	if qm.Message == nil {
		parsed, err := p.cfg.Parser.Parse(qm.Raw)
		if err != nil {
			if errors.Is(err, parser.ErrUnsupported) {
				p.logger.Debug("workerpool: dropping unsupported message", "worker", workerID)
				return
			}
			p.sendToDLQ(ctx, qm.Raw, "parse_error", map[string]any{"error": err.Error(), "worker_id": workerID})
			return
		}
		qm.Message = parsed
	}
	msg := qm.Message

	if msg.Type == message.TypeSync && !p.cfg.DispatchSyncMessages {
		p.recordOutcome("sync_skipped")
		return
	}

	dup, err := p.cfg.Checkpoint.IsDuplicate(ctx, msg.Source, msg.Timestamp)
	if err != nil {
		p.logger.Warn("workerpool: checkpoint lookup failed, treating as not-duplicate", "error", err)
	}
	if dup {
		p.recordOutcome("duplicate")
		p.emit(events.TypeMessageDuplicateDrop, msg.Recipient(), map[string]any{
			"source":    msg.Source,
			"timestamp": msg.Timestamp,
		})
		return
	}

	unlock := p.cfg.Locks.Lock(msg.Recipient())
	defer unlock()

	if !msg.HasText() {
		p.markProcessed(ctx, msg, qm.EnqueuedAt)
		p.recordOutcome("no_text")
		return
	}

	cmd, trigger := p.cfg.Router.Match(msg.Text)
	if cmd == nil || !cmd.IsWhitelisted(msg.Source) {
		p.markProcessed(ctx, msg, qm.EnqueuedAt)
		p.recordOutcome("no_match")
		return
	}

	dispatchCtx := ctxutil.Context{
		Go:        ctx,
		Message:   *msg,
		Sender:    p.cfg.Sender,
		BotNumber: p.cfg.BotNumber,
	}

	err = p.runChain(dispatchCtx, cmd.Handle)
	if err != nil {
		triggerLabel := ""
		if trigger != nil {
			triggerLabel = trigger.Literal
		}
		p.logger.Error("workerpool: handler failed",
			"command_trigger", triggerLabel,
			"worker_id", workerID,
			"shard_id", shardIdx,
			"source", msg.Source,
			"timestamp", msg.Timestamp,
			"error", err,
		)
		if p.cfg.Metrics != nil {
			p.cfg.Metrics.ErrorsTotal.WithLabelValues("workerpool", "command_failed").Inc()
		}
		p.sendToDLQ(ctx, qm.Raw, "command_failed", map[string]any{
			"command_trigger": triggerLabel,
			"worker_id":       workerID,
			"shard_id":        shardIdx,
			"source":          msg.Source,
			"timestamp":       msg.Timestamp,
			"error":           err.Error(),
		})
		p.recordOutcome("command_failed")
		return
	}

	p.markProcessed(ctx, msg, qm.EnqueuedAt)
	p.recordOutcome("dispatched")
	p.emit(events.TypeMessageDispatched, msg.Recipient(), map[string]any{
		"source":    msg.Source,
		"timestamp": msg.Timestamp,
	})
}

// runChain invokes the middleware chain and command handler, converting a
// panic into an error so one bad handler can never kill the worker goroutine
// it runs on (spec.md §7) — independent of whether middleware.Recover has
// been registered in cfg.Chain.
func (p *Pool) runChain(dispatchCtx ctxutil.Context, handle router.HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workerpool: handler panicked: %v", r)
		}
	}()
	return p.cfg.Chain.Run(dispatchCtx, handle)
}

func (p *Pool) markProcessed(ctx context.Context, msg *message.Message, enqueuedAt time.Time) {
	if err := p.cfg.Checkpoint.MarkProcessed(ctx, msg.Source, msg.Timestamp, enqueuedAt.UnixMilli()); err != nil {
		p.logger.Warn("workerpool: mark processed failed", "error", err)
	}
}

func (p *Pool) recordOutcome(outcome string) {
	if p.cfg.Metrics != nil {
		p.cfg.Metrics.MessagesProcessed.WithLabelValues(outcome).Inc()
	}
}

func (p *Pool) sendToDLQ(ctx context.Context, raw, reason string, metadata map[string]any) {
	p.emit(events.TypeMessageDeadLettered, "", map[string]any{"reason": reason})
	if p.cfg.DLQ == nil {
		return
	}
	p.cfg.DLQ.Send(ctx, dlq.Entry{
		Raw:        raw,
		Reason:     reason,
		Metadata:   metadata,
		InsertedAt: time.Now(),
	})
}

func (p *Pool) emit(eventType, subject string, data map[string]any) {
	if p.cfg.Events == nil {
		return
	}
	p.cfg.Events.Emit(eventType, "workerpool", subject, data)
}
