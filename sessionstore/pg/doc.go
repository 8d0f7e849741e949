// Package pg implements a relational session.DataStore on PostgreSQL.
//
// Sessions are stored one row per (id, contextPath, vhost) with scalar fields as typed
// columns and attributes serialized into a single bytea blob via
// session.EncodeAttributes/DecodeAttributes. Initialize creates the table and its
// indexes on first use and upgrades legacy tables missing the max_interval column.
//
// GetExpired runs three passes: rows owned by this node and context already past
// expiry, rows in this context owned by any node expired more than the configured grace
// period ago (covering orphans left by a node that crashed before scavenging them), and any
// caller-supplied candidate id absent from the table entirely.
package pg
