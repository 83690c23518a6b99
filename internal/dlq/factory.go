package dlq

import (
	"context"
	"fmt"
)

// BackendConfig selects and configures a DLQ backend.
type BackendConfig struct {
	Backend string // "memory" (default), "sqlite", "pubsub"

	BufferSize int

	SQLitePath string

	PubSubProjectID string
	PubSubTopicID   string
}

// New constructs the configured Queue.
func New(ctx context.Context, cfg BackendConfig) (Queue, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryQueue(cfg.BufferSize), nil

	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "dlq.db"
		}
		return NewSQLiteQueue(path)

	case "pubsub":
		if cfg.PubSubProjectID == "" || cfg.PubSubTopicID == "" {
			return nil, fmt.Errorf("dlq: pubsub backend requires PubSubProjectID and PubSubTopicID")
		}
		return NewPubSubQueue(ctx, cfg.PubSubProjectID, cfg.PubSubTopicID, cfg.BufferSize)

	default:
		return nil, fmt.Errorf("dlq: unknown backend %q", cfg.Backend)
	}
}
