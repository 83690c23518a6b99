package checkpoint

import "fmt"

// BackendConfig selects and configures a checkpoint backend, mirroring the
// teacher's WalletConfig/NewReputationStore factory-by-string pattern
// (internal/reputation/factory.go).
type BackendConfig struct {
	Backend string // "memory"/"in-memory" (default), "sqlite", "redis"

	MemoryCapacity int

	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTLSec   int
}

// New constructs the configured Store.
func New(cfg BackendConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory", "in-memory":
		capacity := cfg.MemoryCapacity
		if capacity <= 0 {
			capacity = 100_000
		}
		return NewMemoryStore(capacity), nil

	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "checkpoints.db"
		}
		return NewSQLiteStore(path)

	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("checkpoint: redis backend requires RedisAddr")
		}
		ttl := cfg.RedisTTLSec
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, secondsToDuration(ttl))

	default:
		return nil, fmt.Errorf("checkpoint: unknown backend %q", cfg.Backend)
	}
}
