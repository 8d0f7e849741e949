package redis

// Config configures key naming and the orphan-sweep batch size for the Redis session
// store.
type Config struct {
	KeyPrefix     string `env:"SESSION_REDIS_KEY_PREFIX" envDefault:"sessionkit:"`
	ScanBatchSize int64  `env:"SESSION_REDIS_SCAN_BATCH_SIZE" envDefault:"1000"`
}

// DefaultConfig returns a Config with the package defaults applied without touching the
// environment.
func DefaultConfig() Config {
	return Config{KeyPrefix: "sessionkit:", ScanBatchSize: 1000}
}

func (c Config) keyPrefix() string {
	if c.KeyPrefix == "" {
		return "sessionkit:"
	}
	return c.KeyPrefix
}

func (c Config) scanBatchSize() int64 {
	if c.ScanBatchSize <= 0 {
		return 1000
	}
	return c.ScanBatchSize
}
