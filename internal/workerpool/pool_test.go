package workerpool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornellsh/signal-client/internal/checkpoint"
	"github.com/cornellsh/signal-client/internal/ctxutil"
	"github.com/cornellsh/signal-client/internal/dlq"
	"github.com/cornellsh/signal-client/internal/lock"
	"github.com/cornellsh/signal-client/internal/message"
	"github.com/cornellsh/signal-client/internal/middleware"
	"github.com/cornellsh/signal-client/internal/parser"
	"github.com/cornellsh/signal-client/internal/router"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Send(_ context.Context, _ string, recipients []string, text string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, fmt.Sprintf("%v:%s", recipients, text))
	return 1, nil
}

func (s *recordingSender) React(context.Context, string, string, string, string, int64) error {
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestPool(t *testing.T, sender *recordingSender, chk checkpoint.Store, queue dlq.Queue, cmds ...*router.Command) *Pool {
	t.Helper()
	rtr := router.New()
	for _, c := range cmds {
		rtr.Register(c)
	}
	if chk == nil {
		chk = checkpoint.NewMemoryStore(1000)
	}
	if queue == nil {
		queue = dlq.NewMemoryQueue(100)
	}
	cfg := Config{
		PoolSize:   4,
		ShardCount: 4,
		Parser:     parser.New(),
		Router:     rtr,
		Chain:      middleware.NewChain(),
		Checkpoint: chk,
		DLQ:        queue,
		Locks:      lock.NewManager(),
		BotNumber:  "+1bot",
		Sender:     sender,
	}
	return New(cfg, 100)
}

func frame(source string, timestamp int64, text string) string {
	return fmt.Sprintf(`{"envelope":{"source":%q,"timestamp":%d,"dataMessage":{"message":%q}}}`, source, timestamp, text)
}

func submitAndWait(t *testing.T, p *Pool, raw string) {
	t.Helper()
	done := make(chan struct{})
	ok := p.Submit(&message.QueuedMessage{
		Raw:        raw,
		EnqueuedAt: time.Now(),
		Ack:        func() { close(done) },
	})
	require.True(t, ok)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ack")
	}
}

// S1: register "!ping" -> reply("pong"); expect exactly one send and the
// checkpoint marked.
func TestPool_PingPong(t *testing.T) {
	sender := &recordingSender{}
	chk := checkpoint.NewMemoryStore(1000)
	cmd := &router.Command{
		Triggers: []router.Trigger{router.NewLiteralTrigger("!ping")},
		Handle:   func(ctx ctxutil.Context) error { return ctx.Reply("pong") },
	}
	p := newTestPool(t, sender, chk, nil, cmd)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer func() { p.Stop(); p.Join() }()

	submitAndWait(t, p, frame("+1", 1, "!ping"))

	assert.Equal(t, 1, sender.count())
	dup, err := chk.IsDuplicate(context.Background(), "+1", 1)
	require.NoError(t, err)
	assert.True(t, dup)
}

// S2: delivering the same (source, timestamp) twice dispatches exactly once.
func TestPool_Dedup(t *testing.T) {
	sender := &recordingSender{}
	cmd := &router.Command{
		Triggers: []router.Trigger{router.NewLiteralTrigger("!ping")},
		Handle:   func(ctx ctxutil.Context) error { return ctx.Reply("pong") },
	}
	p := newTestPool(t, sender, nil, nil, cmd)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer func() { p.Stop(); p.Join() }()

	raw := frame("+1", 1, "!ping")
	submitAndWait(t, p, raw)
	submitAndWait(t, p, raw)

	assert.Equal(t, 1, sender.count())
}

// S3: a whitelisted command blocks a non-whitelisted source but still
// checkpoints the message.
func TestPool_WhitelistBlocks(t *testing.T) {
	sender := &recordingSender{}
	chk := checkpoint.NewMemoryStore(1000)
	cmd := &router.Command{
		Triggers:  []router.Trigger{router.NewLiteralTrigger("!ping")},
		Whitelist: map[string]struct{}{"+admin": {}},
		Handle:    func(ctx ctxutil.Context) error { return ctx.Reply("pong") },
	}
	p := newTestPool(t, sender, chk, nil, cmd)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer func() { p.Stop(); p.Join() }()

	submitAndWait(t, p, frame("+user", 5, "!ping"))

	assert.Equal(t, 0, sender.count())
	dup, err := chk.IsDuplicate(context.Background(), "+user", 5)
	require.NoError(t, err)
	assert.True(t, dup, "checkpoint still marks whitelisted-out messages")
}

// S4: a handler error sends the message to the DLQ with reason
// command_failed and never marks the checkpoint.
func TestPool_HandlerFailureGoesToDLQ(t *testing.T) {
	sender := &recordingSender{}
	chk := checkpoint.NewMemoryStore(1000)
	queue := dlq.NewMemoryQueue(100)
	cmd := &router.Command{
		Triggers: []router.Trigger{router.NewLiteralTrigger("!boom")},
		Handle:   func(ctxutil.Context) error { return assert.AnError },
	}
	p := newTestPool(t, sender, chk, queue, cmd)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer func() { p.Stop(); p.Join() }()

	submitAndWait(t, p, frame("+1", 9, "!boom"))

	assert.Equal(t, 0, sender.count())
	dup, err := chk.IsDuplicate(context.Background(), "+1", 9)
	require.NoError(t, err)
	assert.False(t, dup, "failed dispatch must not be checkpointed")

	entries, err := queue.Inspect(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "command_failed", entries[0].Reason)
}

// A handler panic is recovered at the dispatch boundary: it is routed to the
// DLQ as command_failed like a returned error, the checkpoint is not marked,
// and — critically — the worker goroutine survives to handle the next
// message instead of wedging its shard.
func TestPool_HandlerPanicIsRecoveredAndDeadLettered(t *testing.T) {
	sender := &recordingSender{}
	chk := checkpoint.NewMemoryStore(1000)
	queue := dlq.NewMemoryQueue(100)
	cmd := &router.Command{
		Triggers: []router.Trigger{router.NewLiteralTrigger("!panic")},
		Handle: func(ctxutil.Context) error {
			var m map[string]int
			m["boom"] = 1 // nil map write panics
			return nil
		},
	}
	p := newTestPool(t, sender, chk, queue, cmd)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer func() { p.Stop(); p.Join() }()

	submitAndWait(t, p, frame("+1", 11, "!panic"))

	dup, err := chk.IsDuplicate(context.Background(), "+1", 11)
	require.NoError(t, err)
	assert.False(t, dup, "panicked dispatch must not be checkpointed")

	entries, err := queue.Inspect(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "command_failed", entries[0].Reason)

	// The worker that handled the panic must still be alive: a second
	// message to the same recipient is handled too, panicking again and
	// landing as a second DLQ entry.
	submitAndWait(t, p, frame("+1", 12, "!panic"))
	entries, err = queue.Inspect(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// S6: for a fixed recipient, handler invocation order matches ingress order,
// even when interleaved with another recipient's traffic.
func TestPool_PerRecipientOrdering(t *testing.T) {
	var mu sync.Mutex
	order := map[string][]int64{}
	cmd := &router.Command{
		Triggers: []router.Trigger{router.NewLiteralTrigger("!x")},
		Handle: func(ctx ctxutil.Context) error {
			mu.Lock()
			order[ctx.Message.Recipient()] = append(order[ctx.Message.Recipient()], ctx.Message.Timestamp)
			mu.Unlock()
			return nil
		},
	}
	sender := &recordingSender{}
	rtr := router.New()
	rtr.Register(cmd)
	p := New(Config{
		PoolSize:   4,
		ShardCount: 4,
		Parser:     parser.New(),
		Router:     rtr,
		Chain:      middleware.NewChain(),
		Checkpoint: checkpoint.NewMemoryStore(1000),
		DLQ:        dlq.NewMemoryQueue(200),
		Locks:      lock.NewManager(),
		BotNumber:  "+1bot",
		Sender:     sender,
	}, 200)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer func() { p.Stop(); p.Join() }()

	// Submitted in a fixed, interleaved order from a single goroutine so
	// ingress order is deterministic; the assertion is that each recipient's
	// dispatch order matches this submission order.
	const n = 50
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 1; i <= n; i++ {
		g1 := fmt.Sprintf(`{"envelope":{"source":"+1","timestamp":%d,"dataMessage":{"message":"!x","groupInfo":{"groupId":"g1"}}}}`, i)
		g2 := fmt.Sprintf(`{"envelope":{"source":"+2","timestamp":%d,"dataMessage":{"message":"!x","groupInfo":{"groupId":"g2"}}}}`, i)
		require.True(t, p.Submit(&message.QueuedMessage{Raw: g1, EnqueuedAt: time.Now(), Ack: wg.Done}))
		require.True(t, p.Submit(&message.QueuedMessage{Raw: g2, EnqueuedAt: time.Now(), Ack: wg.Done}))
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for all messages to dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order["g1"], n)
	require.Len(t, order["g2"], n)
	for i := 1; i < n; i++ {
		assert.Less(t, order["g1"][i-1], order["g1"][i])
		assert.Less(t, order["g2"][i-1], order["g2"][i])
	}
}

// After Stop+Join, no worker or distributor task is still running: a second
// Join call returns immediately and Submit after Stop is rejected.
func TestPool_StopJoinTerminatesTasks(t *testing.T) {
	p := newTestPool(t, &recordingSender{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Stop()
	done := make(chan struct{})
	go func() { p.Join(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not terminate after Stop")
	}

	ok := p.Submit(&message.QueuedMessage{Raw: "x", EnqueuedAt: time.Now(), Ack: func() {}})
	assert.False(t, ok)
}
