// Package redis implements a Redis-backed session.DataStore.
//
// Each session is a Redis hash keyed by prefix + vhost + contextPath + id, with a
// PEXPIREAT mirroring session.Data's Expiry field so timed-out sessions are reclaimed by
// Redis itself. GetExpired treats a missing candidate key as expired-by-absence and
// additionally sweeps this context's keyspace via SCAN to catch resident sessions whose
// expiry field has passed even though their key has not yet been evicted.
package redis
