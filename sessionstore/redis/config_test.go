package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sessionkit:", cfg.KeyPrefix)
	assert.Equal(t, int64(1000), cfg.ScanBatchSize)
}

func TestKeyPrefixAppliesDefaultWhenUnset(t *testing.T) {
	var cfg Config
	assert.Equal(t, "sessionkit:", cfg.keyPrefix())

	cfg.KeyPrefix = "custom:"
	assert.Equal(t, "custom:", cfg.keyPrefix())
}

func TestScanBatchSizeAppliesDefaultWhenUnset(t *testing.T) {
	var cfg Config
	assert.Equal(t, int64(1000), cfg.scanBatchSize())

	cfg.ScanBatchSize = 50
	assert.Equal(t, int64(50), cfg.scanBatchSize())
}
