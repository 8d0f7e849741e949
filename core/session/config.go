package session

// ManagerConfig configures a single context's SessionManager, Cache, and candidate-
// expiry bookkeeping. One instance exists per deployed application context.
type ManagerConfig struct {
	// ContextPath is the canonical application path, e.g. "/app". Empty is the root
	// context.
	ContextPath string `env:"SESSION_CONTEXT_PATH" envDefault:""`
	// VHost is the canonical virtual host this context serves. Empty means any host.
	VHost string `env:"SESSION_VHOST" envDefault:""`

	// MaxInactiveIntervalSec is the idle timeout. <= 0 means immortal.
	MaxInactiveIntervalSec int64 `env:"SESSION_MAX_INACTIVE_INTERVAL_SEC" envDefault:"-1"`
	// SavePeriodSec is how often in-memory, non-dirty sessions are refreshed to the
	// store. 0 disables periodic refresh (write-through still happens on dirty exit).
	SavePeriodSec int64 `env:"SESSION_SAVE_PERIOD_SEC" envDefault:"0"`
	// IdlePassivationTimeoutSec evicts a resident session from memory after this idle
	// time, when EvictOnInactivity is the configured eviction policy.
	IdlePassivationTimeoutSec int64 `env:"SESSION_IDLE_PASSIVATION_TIMEOUT_SEC" envDefault:"0"`
	// StalePeriodSec is the reload-from-store threshold: now - lastSaved >= this means
	// a cache hit is treated as stale and reloaded. NewManager applies this to the
	// bound DefaultCache, if any.
	StalePeriodSec int64 `env:"SESSION_STALE_PERIOD_SEC" envDefault:"0"`
}

// DefaultManagerConfig returns the package defaults: immortal sessions, no periodic
// save, no idle passivation, no staleness check.
//
// The orphan grace period (how long a non-local session must sit past its expiry
// before a different node's scavenger reclaims it) is a DataStore concern, not a
// Manager one: the Manager only holds a Cache, never the underlying store directly, so
// it has nothing to flow that setting into. See sessionstore/pg.Config.GracePeriodSec,
// which configures it where the three-pass expiry scan actually runs.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxInactiveIntervalSec: -1,
	}
}

func (c ManagerConfig) maxInactiveMs() int64 {
	if c.MaxInactiveIntervalSec <= 0 {
		return 0
	}
	return c.MaxInactiveIntervalSec * 1000
}

func (c ManagerConfig) stalePeriodMs() int64 {
	return c.StalePeriodSec * 1000
}
