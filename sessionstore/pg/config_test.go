package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "session_data", cfg.TableName)
	assert.Equal(t, int64(60), cfg.GracePeriodSec)
}

func TestGracePeriodMsAppliesDefaultWhenUnset(t *testing.T) {
	var cfg Config
	assert.Equal(t, int64(60_000), cfg.gracePeriodMs())

	cfg.GracePeriodSec = 30
	assert.Equal(t, int64(30_000), cfg.gracePeriodMs())
}

func TestTableNameAppliesDefaultWhenUnset(t *testing.T) {
	var cfg Config
	assert.Equal(t, "session_data", cfg.tableName())

	cfg.TableName = "custom_sessions"
	assert.Equal(t, "custom_sessions", cfg.tableName())
}

func TestSanitizeIdentReplacesUnsafeCharacters(t *testing.T) {
	assert.Equal(t, "my_table", sanitizeIdent("my_table"))
	assert.Equal(t, "my_table_2", sanitizeIdent("my-table-2"))
	assert.Equal(t, "a_b_c", sanitizeIdent("a.b;c"))
}
