// Package dlq implements the dead-letter queue: parse failures and handler
// exceptions land here instead of re-entering the dispatch pipeline. A DLQ
// failure must never propagate back onto the main path — errors are logged
// and swallowed by every backend.
package dlq

import (
	"context"
	"time"
)

// Entry is the payload shape persisted for every dead-lettered item.
type Entry struct {
	Raw        string         `json:"raw"`
	Reason     string         `json:"reason"`
	Metadata   map[string]any `json:"metadata"`
	InsertedAt time.Time      `json:"inserted_at"`
}

// Queue is the dead-letter contract.
type Queue interface {
	// Send persists entry. Implementations log and swallow backend errors
	// rather than returning them — callers are never on the hook for DLQ
	// availability.
	Send(ctx context.Context, entry Entry)

	// Inspect returns all currently stored entries, newest last.
	Inspect(ctx context.Context) ([]Entry, error)

	Close() error
}
