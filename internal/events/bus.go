// Package events is an in-process CloudEvents-shaped pub/sub used to observe
// worker pool lifecycle (message dispatched, message dead-lettered, circuit
// breaker state changed) without coupling emitters to a concrete sink.
// Grounded on the teacher's internal/events/bus.go EventBus, narrowed to the
// runtime's own lifecycle event types rather than the teacher's
// tenant-scoped platform events.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event type names emitted by the worker pool and HTTP core.
const (
	TypeMessageDispatched     = "com.signalbot.message.dispatched"
	TypeMessageDeadLettered   = "com.signalbot.message.dead_lettered"
	TypeCircuitBreakerChanged = "com.signalbot.circuitbreaker.state_changed"
	TypeMessageDuplicateDrop  = "com.signalbot.message.duplicate_dropped"
)

// Emitter is satisfied by Bus; callers that only need to emit (the worker
// pool, the HTTP core) should depend on this rather than the concrete type.
type Emitter interface {
	Emit(eventType, source, subject string, data map[string]any)
}

// CloudEvent is a CloudEvents 1.0 envelope.
type CloudEvent struct {
	SpecVersion string         `json:"specversion"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	ID          string         `json:"id"`
	Time        time.Time      `json:"time"`
	Subject     string         `json:"subject,omitempty"`
	Data        map[string]any `json:"data"`
}

// NewCloudEvent builds a CloudEvents 1.0 compliant event whose ID is derived
// from the wall-clock time in nanoseconds.
func NewCloudEvent(eventType, source, subject string, data map[string]any) *CloudEvent {
	return &CloudEvent{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      source,
		ID:          fmt.Sprintf("ce-%d", time.Now().UnixNano()),
		Time:        time.Now(),
		Subject:     subject,
		Data:        data,
	}
}

// JSON serializes the event.
func (ce *CloudEvent) JSON() ([]byte, error) {
	return json.Marshal(ce)
}

// Bus is an in-process pub/sub event bus; subscribers receive CloudEvents in
// real time over a buffered channel and never block a publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *CloudEvent
	allSubs     []chan *CloudEvent
	logger      *slog.Logger
	bufferSize  int
}

// NewBus creates an event bus with the given per-subscriber channel buffer.
func NewBus(logger *slog.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]chan *CloudEvent),
		logger:      logger,
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a channel receiving events of the given types. Passing
// no types subscribes to every event.
func (b *Bus) Subscribe(eventTypes ...string) chan *CloudEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *CloudEvent, b.bufferSize)
	if len(eventTypes) == 0 {
		b.allSubs = append(b.allSubs, ch)
	} else {
		for _, et := range eventTypes {
			b.subscribers[et] = append(b.subscribers[et], ch)
		}
	}
	return ch
}

// Unsubscribe removes and closes ch.
func (b *Bus) Unsubscribe(ch chan *CloudEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for et, subs := range b.subscribers {
		b.subscribers[et] = removeChan(subs, ch)
	}
	b.allSubs = removeChan(b.allSubs, ch)
	close(ch)
}

func removeChan(subs []chan *CloudEvent, target chan *CloudEvent) []chan *CloudEvent {
	filtered := make([]chan *CloudEvent, 0, len(subs))
	for _, s := range subs {
		if s != target {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// Publish delivers event to every matching subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the publisher.
func (b *Bus) Publish(event *CloudEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("events: subscriber buffer full, dropping event", "type", event.Type)
		}
	}
	for _, ch := range b.allSubs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Emit builds and publishes a CloudEvent in one call.
func (b *Bus) Emit(eventType, source, subject string, data map[string]any) {
	b.Publish(NewCloudEvent(eventType, source, subject, data))
}

// SubscriberCount returns the number of active subscriber channels.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := len(b.allSubs)
	for _, subs := range b.subscribers {
		count += len(subs)
	}
	return count
}
