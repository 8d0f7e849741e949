// Package session implements a distributed HTTP session management core: per-context
// caching of live Session objects, pluggable durable persistence, server-wide id
// management, and a scheduled scavenger for expiry and orphan recovery across a
// multi-context, optionally multi-node server.
//
// Four pieces compose the core:
//
//   - Cache: per-context owner of live Session objects, guaranteeing at most one
//     resident Session per id and coalescing concurrent loads on miss.
//   - DataStore: pluggable persistence (MemStore, FileStore, and the relational and
//     Redis backends in sessionstore/pg and sessionstore/redis) with write-through and
//     passivation semantics.
//   - IDManager: server-wide id minting, in-use tracking, and cross-context
//     invalidation/rename fan-out.
//   - HouseKeeper: a scheduled scavenger sweeping expiry candidates across every
//     registered context.
//
// Manager is the per-context façade binding a Cache, the IDManager, and a typed
// EventBus, exposing create/get/invalidate/renew operations and dispatching lifecycle
// events. HTTP parsing, cookie header generation, and request dispatch are out of
// scope; this package owns identity, caching, persistence, and expiry only.
package session
