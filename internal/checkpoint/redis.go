package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists checkpoints as keys "checkpoint:<source>:<timestamp>"
// with a TTL, so dedup state self-expires instead of growing unbounded.
// Grounded on the teacher's internal/infra/redis_adapter.go GoRedisAdapter
// (same client construction, Ping-on-connect, slog.Info on success).
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to addr/db and verifies connectivity with a ping.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("checkpoint: redis ping failed (%s): %w", addr, err)
	}

	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	slog.Info("checkpoint: redis connected", "addr", addr, "db", db)
	return &RedisStore{rdb: rdb, ttl: ttl, logger: slog.Default()}, nil
}

func key(source string, timestamp int64) string {
	return fmt.Sprintf("checkpoint:%s:%d", source, timestamp)
}

func (s *RedisStore) IsDuplicate(ctx context.Context, source string, timestamp int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, key(source, timestamp)).Result()
	if err != nil {
		s.logger.Warn("checkpoint: redis lookup failed, treating as not duplicate", "error", err)
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) MarkProcessed(ctx context.Context, source string, timestamp int64, _ int64) error {
	err := s.rdb.Set(ctx, key(source, timestamp), "1", s.ttl).Err()
	if err != nil {
		s.logger.Warn("checkpoint: redis mark failed", "source", source, "timestamp", timestamp, "error", err)
	}
	return err
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
