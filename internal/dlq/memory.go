package dlq

import (
	"context"
	"log/slog"
	"sync"
)

// MemoryQueue buffers dead-lettered entries in a channel drained by a single
// background goroutine, matching the teacher's webhooks.Dispatcher worker/queue shape
// (internal/webhooks/dispatcher.go), repurposed here to append into an
// in-memory slice instead of delivering HTTP callbacks.
type MemoryQueue struct {
	mu      sync.Mutex
	entries []Entry

	queue  chan Entry
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewMemoryQueue starts a background worker draining inserts into the
// in-memory slice that Inspect reads from.
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	q := &MemoryQueue{
		queue:  make(chan Entry, bufferSize),
		logger: slog.Default(),
	}
	q.wg.Add(1)
	go q.drain()
	return q
}

func (q *MemoryQueue) drain() {
	defer q.wg.Done()
	for entry := range q.queue {
		q.mu.Lock()
		q.entries = append(q.entries, entry)
		q.mu.Unlock()
	}
}

func (q *MemoryQueue) Send(_ context.Context, entry Entry) {
	select {
	case q.queue <- entry:
	default:
		q.logger.Warn("dlq: memory queue full, dropping entry", "reason", entry.Reason)
	}
}

func (q *MemoryQueue) Inspect(_ context.Context) ([]Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func (q *MemoryQueue) Close() error {
	close(q.queue)
	q.wg.Wait()
	return nil
}
