package session

import "context"

// DataStore is the pluggable persistence contract. Implementations: the package-internal
// in-process map (NewMemStore), the filesystem store (NewFileStore), and the relational
// and Redis backends in sessionstore/pg and sessionstore/redis.
type DataStore interface {
	// Initialize binds the store to ctx. Must be called once, before any other method.
	Initialize(ctx Context) error

	// Load returns the current durable record for id, or ErrNotFound if absent. A store
	// that cannot deserialize what it finds returns an error satisfying
	// errors.Is(err, ErrUnreadable) rather than a zero value.
	Load(ctx context.Context, id string) (*Data, error)

	// Store inserts or updates the record for id. lastSaveTime <= 0 means insert,
	// otherwise update; either way the primary key determines identity so the write is an
	// upsert. On success the store stamps data.LastSaved to the current time.
	Store(ctx context.Context, id string, data *Data, lastSaveTime int64) error

	// Delete removes id's record, returning true iff a row was actually removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Exists reports whether a non-expired record for id is present.
	Exists(ctx context.Context, id string) (bool, error)

	// GetExpired takes the ids the caller believes are expired and returns the subset
	// that the store confirms are expired or unknown, plus any orphaned ids the store
	// discovers on its own that the caller didn't name.
	GetExpired(ctx context.Context, candidates []string, now int64) ([]string, error)

	// IsPassivating reports whether this store requires attribute (de)serialization,
	// i.e. whether a Load returns an independent copy rather than a shared reference.
	IsPassivating() bool

	// Healthcheck probes backend reachability. The in-process store always reports nil;
	// the file store reports an error if its directory is missing or not a directory.
	Healthcheck(ctx context.Context) error
}
