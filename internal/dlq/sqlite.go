package dlq

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteQueue persists the table described in spec.md §6:
// (id, raw, reason, metadata_json, inserted_at).
type SQLiteQueue struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteQueue opens (creating if necessary) the DLQ table at path.
func NewSQLiteQueue(path string) (*SQLiteQueue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dlq: open sqlite %q: %w", path, err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS dead_letters (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		raw TEXT,
		reason TEXT,
		metadata_json TEXT,
		inserted_at INTEGER
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("dlq: create table: %w", err)
	}

	return &SQLiteQueue{db: db, logger: slog.Default()}, nil
}

func (q *SQLiteQueue) Send(ctx context.Context, entry Entry) {
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		q.logger.Error("dlq: failed to marshal metadata, dropping entry", "error", err)
		return
	}
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}

	_, err = q.db.ExecContext(ctx,
		`INSERT INTO dead_letters (raw, reason, metadata_json, inserted_at) VALUES (?, ?, ?, ?)`,
		entry.Raw, entry.Reason, string(metaJSON), entry.InsertedAt.UnixMilli(),
	)
	if err != nil {
		q.logger.Error("dlq: insert failed", "reason", entry.Reason, "error", err)
	}
}

func (q *SQLiteQueue) Inspect(ctx context.Context) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT raw, reason, metadata_json, inserted_at FROM dead_letters ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("dlq: query failed: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			raw, reason, metaJSON string
			insertedAtMillis      int64
		)
		if err := rows.Scan(&raw, &reason, &metaJSON, &insertedAtMillis); err != nil {
			return nil, fmt.Errorf("dlq: scan failed: %w", err)
		}

		var metadata map[string]any
		_ = json.Unmarshal([]byte(metaJSON), &metadata)

		out = append(out, Entry{
			Raw:        raw,
			Reason:     reason,
			Metadata:   metadata,
			InsertedAt: time.UnixMilli(insertedAtMillis),
		})
	}
	return out, rows.Err()
}

func (q *SQLiteQueue) Close() error {
	return q.db.Close()
}
