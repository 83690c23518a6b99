package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
)

// PubSubQueue fans dead-lettered entries out to a durable Pub/Sub topic for
// downstream reprocessing tooling, and also keeps a bounded in-memory tail
// so Inspect has something to return locally without round-tripping to GCP.
// Grounded on the teacher's internal/events/pubsub_bus.go PubSubEventBus:
// same NewClient/topic.Exists/CreateTopic bootstrap, same non-blocking
// publish-and-log-result-in-a-goroutine shape.
type PubSubQueue struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *slog.Logger

	tail *MemoryQueue
}

// NewPubSubQueue connects to projectID and publishes to topicID, creating
// the topic if absent.
func NewPubSubQueue(ctx context.Context, projectID, topicID string, tailSize int) (*PubSubQueue, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("dlq: pubsub.NewClient: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("dlq: topic.Exists: %w", err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("dlq: CreateTopic: %w", err)
		}
	}

	return &PubSubQueue{
		client: client,
		topic:  topic,
		logger: slog.Default(),
		tail:   NewMemoryQueue(tailSize),
	}, nil
}

func (q *PubSubQueue) Send(ctx context.Context, entry Entry) {
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}
	q.tail.Send(ctx, entry)

	payload, err := json.Marshal(entry)
	if err != nil {
		q.logger.Error("dlq: failed to marshal entry for pubsub", "error", err)
		return
	}

	result := q.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"reason": entry.Reason,
		},
	})

	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			q.logger.Error("dlq: pubsub publish failed", "reason", entry.Reason, "error", err)
		}
	}()
}

func (q *PubSubQueue) Inspect(ctx context.Context) ([]Entry, error) {
	return q.tail.Inspect(ctx)
}

func (q *PubSubQueue) Close() error {
	q.topic.Stop()
	q.tail.Close()
	return q.client.Close()
}
