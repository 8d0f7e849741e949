package session

import "context"

// EvictionPolicy controls when the Default cache strategy lets a resident Session go.
type EvictionPolicy int

const (
	// EvictNever keeps every materialized Session resident until explicitly removed.
	EvictNever EvictionPolicy = iota
	// EvictOnSessionExit passivates a Session as soon as its ref count reaches zero.
	EvictOnSessionExit
	// EvictOnInactivity passivates a Session once it has been idle longer than the
	// configured duration. Used with DefaultCache.PassivateIdleSession on a timer.
	EvictOnInactivity
)

// Cache is the per-context, in-memory owner of live Session objects. At most one
// Session is ever resident for a given id at a given instant; concurrent Get calls for
// an uncached id coalesce into a single store load.
type Cache interface {
	// Get returns the cached Session for id, loading from the store on miss and
	// inserting the result. Returns nil, nil if the store reports ErrNotFound. A cache
	// hit whose Session is stale (per the configured StalePeriod) is evicted and
	// reloaded before being returned.
	Get(ctx context.Context, id string) (*Session, error)

	// Put inserts sess under id, compare-and-inserting: if another Session is already
	// resident for id, the existing one wins and is returned instead along with
	// ErrConflict.
	Put(ctx context.Context, id string, sess *Session) (*Session, error)

	// Delete removes id from both cache and store, returning the removed Session (or
	// nil if it wasn't cached).
	Delete(ctx context.Context, id string) (*Session, error)

	// CheckExpiration asks the store to confirm which of candidates are expired, then
	// invalidates any of those still resident in the cache. Returns the confirmed-
	// expired id set.
	CheckExpiration(ctx context.Context, candidates []string, now int64) ([]string, error)

	// RenewSessionID atomically swaps a resident Session's identity from oldID to
	// newID in both cache and store.
	RenewSessionID(ctx context.Context, oldID, newID string) error

	// NewSession mints and caches a brand-new Session for id, writing it through to the
	// store before publishing it: callers never observe a Session whose durable copy
	// does not yet exist.
	NewSession(ctx context.Context, id, contextPath, vhost string, now int64, maxInactiveMs int64) (*Session, error)

	// Contains reports whether id is currently resident, without touching the store.
	Contains(id string) bool

	// Shutdown iterates resident entries, writes dirty ones through, and clears the
	// table. Bounded by a max-iteration count so concurrent inserts during shutdown
	// cannot livelock it.
	Shutdown(ctx context.Context) error
}
