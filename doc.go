// Package sessionkit provides a distributed HTTP session management subsystem: session
// caching, pluggable persistence, server-wide id management, and scheduled expiry sweeps
// for multi-context, optionally multi-node servers.
//
// # Package Organization
//
//	github.com/dmitrymomot/sessionkit/core/session          - session lifecycle, cache, id manager, housekeeper
//	github.com/dmitrymomot/sessionkit/core/config            - type-safe environment variable loading
//	github.com/dmitrymomot/sessionkit/core/logger             - structured logging built on slog
//	github.com/dmitrymomot/sessionkit/integration/database/pg - PostgreSQL pooling, migrations, healthchecks
//	github.com/dmitrymomot/sessionkit/integration/database/redis - Redis client with retry logic
//	github.com/dmitrymomot/sessionkit/sessionstore/pg         - relational SessionDataStore backend
//	github.com/dmitrymomot/sessionkit/sessionstore/redis      - Redis-backed SessionDataStore backend
//
// # Architecture
//
// Four pieces compose the core:
//
//   - session.Cache: per-context, in-memory owner of live Session objects. Guarantees at
//     most one Session object per id at any instant and coalesces concurrent loads.
//   - session.DataStore: pluggable persistence (in-process map, filesystem, PostgreSQL,
//     Redis) with write-through/passivation semantics.
//   - session.IDManager: server-wide id minting, in-use tracking, and cross-context
//     invalidation fan-out.
//   - session.HouseKeeper: a scheduled scavenger that sweeps expiry candidates against
//     both cache and store, recovering sessions orphaned by failed nodes.
//
// session.Manager is the per-context façade that binds a Cache, an IDManager, and a
// listener bus, and exposes the operations a request-dispatch layer needs: load-or-create
// a session, fetch by id, invalidate, renew id, and dispatch lifecycle events.
//
// HTTP parsing, cookie header generation, request dispatch, and listener invocation
// mechanics are explicitly out of scope; this module owns identity, caching, persistence,
// and expiry only.
//
// # Example Usage
//
//	import (
//		"context"
//		"time"
//
//		"github.com/dmitrymomot/sessionkit/core/session"
//	)
//
//	func main() {
//		store := session.NewMemStore()
//		cache := session.NewDefaultCache(store, session.EvictOnSessionExit, 0, nil)
//
//		idmgr, err := session.NewIDManager(session.IDManagerConfig{WorkerName: "node-1"}, nil)
//		if err != nil {
//			panic(err)
//		}
//
//		cfg := session.DefaultManagerConfig()
//		cfg.ContextPath = "/app"
//		cfg.VHost = "example.com"
//
//		mgr, err := session.NewManager(cfg, cache, idmgr, nil)
//		if err != nil {
//			panic(err)
//		}
//
//		hk := session.NewHouseKeeper(session.DefaultHouseKeeperConfig(), nil)
//		hk.Register(cfg.ContextPath, mgr)
//		hk.Start(context.Background())
//		defer hk.Stop()
//
//		ctx := context.Background()
//		id, sess, err := mgr.CreateSession(ctx, time.Now().UnixMilli())
//		if err != nil {
//			panic(err)
//		}
//		mgr.SetAttribute(sess, "cart", []string{"sku-1"})
//		mgr.Complete(ctx, sess)
//		_ = id
//	}
package sessionkit
