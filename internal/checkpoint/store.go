// Package checkpoint records which (source, timestamp) pairs have already
// been dispatched, giving the worker pool at-most-once delivery semantics.
// Lookup and mark failures are non-fatal: a store error must never stop a
// message from being processed.
package checkpoint

import "context"

// Store is the checkpoint contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// IsDuplicate reports whether (source, timestamp) was already marked
	// processed. On a backend error, implementations return (false, err) —
	// callers treat a lookup failure as "not a duplicate".
	IsDuplicate(ctx context.Context, source string, timestamp int64) (bool, error)

	// MarkProcessed records (source, timestamp) as processed. enqueuedAt is
	// retained for diagnostics in backends that keep it.
	MarkProcessed(ctx context.Context, source string, timestamp int64, enqueuedAtUnixMilli int64) error

	// Close releases any held resources (connections, files).
	Close() error
}
