package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists checkpoints to the table described in spec.md §6:
// (source TEXT, timestamp INTEGER, PRIMARY KEY(source, timestamp)).
// Grounded on the teacher's database/sql + sql.Open("sqlite", path) idiom
// (internal/reputation/wallet.go), swapped to the pure-Go modernc.org/sqlite
// driver since the teacher's own sqlite usage never vendors cgo.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the checkpoint table at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open sqlite %q: %w", path, err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS checkpoints (
		source TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		enqueued_at INTEGER,
		PRIMARY KEY (source, timestamp)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: create table: %w", err)
	}

	return &SQLiteStore{db: db, logger: slog.Default()}, nil
}

func (s *SQLiteStore) IsDuplicate(ctx context.Context, source string, timestamp int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM checkpoints WHERE source = ? AND timestamp = ?`,
		source, timestamp,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		s.logger.Warn("checkpoint: lookup failed, treating as not duplicate", "error", err)
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, source string, timestamp int64, enqueuedAtUnixMilli int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO checkpoints (source, timestamp, enqueued_at) VALUES (?, ?, ?)`,
		source, timestamp, enqueuedAtUnixMilli,
	)
	if err != nil {
		s.logger.Warn("checkpoint: mark failed", "source", source, "timestamp", timestamp, "error", err)
	}
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
