// Package config defines the runtime's typed settings, loaded from YAML with
// environment variable overrides. Directly adapted from the teacher's
// internal/config/config.go: the sync.Once singleton, applyEnvOverrides/
// applyDefaults split, and getEnv* helper family are kept as-is; every
// sub-struct is this runtime's own rather than the teacher's governance
// domain (EscrowConfig, TrustConfig, FederationConfig, ...).
package config

import (
	"log/slog"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"
)

// Config is the root settings struct, covering every key in spec.md §6.
type Config struct {
	PhoneNumber   string `yaml:"phone_number"`
	SignalService string `yaml:"signal_service"`
	BaseURL       string `yaml:"base_url"`

	WorkerPoolSize int `yaml:"worker_pool_size"`
	ShardCount     int `yaml:"shard_count"`
	QueueSize      int `yaml:"queue_size"`

	Backpressure BackpressureConfig `yaml:"backpressure"`
	Storage      StorageConfig      `yaml:"storage"`
	HTTP         HTTPConfig         `yaml:"http"`
	Bot          BotConfig          `yaml:"bot"`
}

// BackpressureConfig selects the listener's overflow policy.
type BackpressureConfig struct {
	Policy string `yaml:"policy"` // DROP_NEWEST (default), BLOCK, DROP_OLDEST
}

// StorageConfig selects and configures the checkpoint/DLQ backends.
type StorageConfig struct {
	Type       string `yaml:"type"` // in-memory (default), sqlite, redis
	SQLiteDB   string `yaml:"sqlite_db"`
	RedisHost  string `yaml:"redis_host"`
	RedisPort  int    `yaml:"redis_port"`
	RedisDB    int    `yaml:"redis_db"`
	DLQBackend string `yaml:"dlq_backend"` // memory (default), sqlite, pubsub
}

// HTTPConfig configures the HTTP core (C1) and its C10 adjuncts.
type HTTPConfig struct {
	Retries              int                      `yaml:"retries"`
	BackoffFactor        float64                  `yaml:"backoff_factor"`
	TimeoutSec           float64                  `yaml:"timeout"`
	EndpointTimeouts     map[string]float64       `yaml:"endpoint_timeouts"`
	RateLimit            RateLimitConfig          `yaml:"rate_limit"`
	CircuitBreaker       CircuitBreakerConfig     `yaml:"circuit_breaker"`
	IdempotencyHeaderName string                  `yaml:"idempotency_header_name"`
}

// RateLimitConfig configures the token bucket in front of the HTTP core.
type RateLimitConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// CircuitBreakerConfig configures the HTTP core's breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	CooldownSec      int `yaml:"cooldown"`
}

// BotConfig holds runtime-level behavior flags not named directly in the
// distilled spec's config key list but needed to resolve its open questions.
type BotConfig struct {
	// DispatchSyncMessages gates whether SYNC-typed messages (echoes from
	// the bot's own linked devices) are routed through the command router.
	// SPEC_FULL.md Open Question 4: default false.
	DispatchSyncMessages bool `yaml:"dispatch_sync_messages"`

	// MaxAttachmentDownloadBytes bounds internal/signalapi's attachment
	// download helper.
	MaxAttachmentDownloadBytes int64 `yaml:"max_attachment_download_bytes"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton, loading from CONFIG_PATH (default
// "config.yaml") on first call.
func Get() *Config {
	once.Do(func() {
		cfg, err := Load(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: failed to load file, using defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		instance = cfg
	})
	return instance
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.PhoneNumber = getEnv("SIGNAL_PHONE_NUMBER", c.PhoneNumber)
	c.SignalService = getEnv("SIGNAL_SERVICE", c.SignalService)
	c.BaseURL = getEnv("SIGNAL_BASE_URL", c.BaseURL)

	if v := getEnvInt("WORKER_POOL_SIZE", 0); v > 0 {
		c.WorkerPoolSize = v
	}
	if v := getEnvInt("SHARD_COUNT", 0); v > 0 {
		c.ShardCount = v
	}
	if v := getEnvInt("QUEUE_SIZE", 0); v > 0 {
		c.QueueSize = v
	}

	c.Backpressure.Policy = getEnv("BACKPRESSURE", c.Backpressure.Policy)

	c.Storage.Type = getEnv("STORAGE_TYPE", c.Storage.Type)
	c.Storage.SQLiteDB = getEnv("STORAGE_SQLITE_DB", c.Storage.SQLiteDB)
	c.Storage.RedisHost = getEnv("STORAGE_REDIS_HOST", c.Storage.RedisHost)
	if v := getEnvInt("STORAGE_REDIS_PORT", 0); v > 0 {
		c.Storage.RedisPort = v
	}
	c.Storage.DLQBackend = getEnv("DLQ_BACKEND", c.Storage.DLQBackend)

	if v := getEnvInt("HTTP_RETRIES", -1); v >= 0 {
		c.HTTP.Retries = v
	}
	if v := getEnvFloat("HTTP_BACKOFF_FACTOR", 0); v > 0 {
		c.HTTP.BackoffFactor = v
	}
	if v := getEnvFloat("HTTP_TIMEOUT", 0); v > 0 {
		c.HTTP.TimeoutSec = v
	}
	c.HTTP.IdempotencyHeaderName = getEnv("HTTP_IDEMPOTENCY_HEADER_NAME", c.HTTP.IdempotencyHeaderName)
	if v := getEnvFloat("HTTP_RATE_LIMIT_RATE", 0); v > 0 {
		c.HTTP.RateLimit.Rate = v
	}
	if v := getEnvInt("HTTP_RATE_LIMIT_BURST", 0); v > 0 {
		c.HTTP.RateLimit.Burst = v
	}
	if v := getEnvInt("HTTP_CIRCUIT_BREAKER_FAILURE_THRESHOLD", 0); v > 0 {
		c.HTTP.CircuitBreaker.FailureThreshold = v
	}
	if v := getEnvInt("HTTP_CIRCUIT_BREAKER_COOLDOWN", 0); v > 0 {
		c.HTTP.CircuitBreaker.CooldownSec = v
	}

	c.Bot.DispatchSyncMessages = getEnvBool("BOT_DISPATCH_SYNC_MESSAGES", c.Bot.DispatchSyncMessages)
	if v := getEnvInt("BOT_MAX_ATTACHMENT_DOWNLOAD_BYTES", 0); v > 0 {
		c.Bot.MaxAttachmentDownloadBytes = int64(v)
	}

	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.WorkerPoolSize == 0 {
		c.WorkerPoolSize = 8
	}
	if c.ShardCount == 0 {
		c.ShardCount = c.WorkerPoolSize
	}
	if c.QueueSize == 0 {
		c.QueueSize = 1000
	}
	if c.Backpressure.Policy == "" {
		c.Backpressure.Policy = "DROP_NEWEST"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "in-memory"
	}
	if c.Storage.DLQBackend == "" {
		c.Storage.DLQBackend = "memory"
	}
	if c.HTTP.Retries == 0 {
		c.HTTP.Retries = 3
	}
	if c.HTTP.BackoffFactor == 0 {
		c.HTTP.BackoffFactor = 0.5
	}
	if c.HTTP.TimeoutSec == 0 {
		c.HTTP.TimeoutSec = 30
	}
	if c.HTTP.IdempotencyHeaderName == "" {
		c.HTTP.IdempotencyHeaderName = "Idempotency-Key"
	}
	if c.HTTP.RateLimit.Rate == 0 {
		c.HTTP.RateLimit.Rate = 10
	}
	if c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = 20
	}
	if c.HTTP.CircuitBreaker.FailureThreshold == 0 {
		c.HTTP.CircuitBreaker.FailureThreshold = 5
	}
	if c.HTTP.CircuitBreaker.CooldownSec == 0 {
		c.HTTP.CircuitBreaker.CooldownSec = 30
	}
	if c.Bot.MaxAttachmentDownloadBytes == 0 {
		c.Bot.MaxAttachmentDownloadBytes = 50 * 1024 * 1024
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
