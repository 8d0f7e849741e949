package pg

// Config configures the relational session table name and the cross-node orphan grace
// period used by GetExpired's second scan pass.
type Config struct {
	TableName      string `env:"SESSION_PG_TABLE" envDefault:"session_data"`
	GracePeriodSec int64  `env:"SESSION_PG_GRACE_PERIOD_SEC" envDefault:"60"`
}

// DefaultConfig returns a Config with the package defaults applied without touching the
// environment.
func DefaultConfig() Config {
	return Config{TableName: "session_data", GracePeriodSec: 60}
}

func (c Config) gracePeriodMs() int64 {
	if c.GracePeriodSec <= 0 {
		return 60_000
	}
	return c.GracePeriodSec * 1000
}

func (c Config) tableName() string {
	if c.TableName == "" {
		return "session_data"
	}
	return c.TableName
}
