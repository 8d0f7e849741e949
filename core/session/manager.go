package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type writeThroughCache interface {
	CompleteRequest(ctx context.Context, id string, sess *Session) error
}

// periodicRefresher is implemented by cache strategies that support refreshing idle,
// non-dirty resident sessions on a schedule (currently DefaultCache). NullCache has
// nothing resident to refresh.
type periodicRefresher interface {
	RefreshIdle(ctx context.Context, now int64) error
}

// Manager is the per-context façade binding a Cache, the server-wide IDManager, and an
// EventBus. It is the operation surface a request-dispatch layer calls: load-or-create a
// session, fetch by id, invalidate, renew id, and dispatch lifecycle events. It also
// implements Handler (for IDManager fan-out) and Scavengeable (for HouseKeeper sweeps).
type Manager struct {
	cfg    ManagerConfig
	cache  Cache
	idmgr  *IDManager
	events *EventBus
	log    *slog.Logger

	mu         sync.Mutex
	candidates map[string]struct{}
}

// NewManager binds cache and idmgr under cfg, registers the manager with idmgr, and
// returns it ready to serve requests. A nil logger defaults to discard.
func NewManager(cfg ManagerConfig, cache Cache, idmgr *IDManager, log *slog.Logger) (*Manager, error) {
	if idmgr == nil {
		return nil, fmt.Errorf("session: new manager: %w", ErrNoDataSource)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	m := &Manager{
		cfg:        cfg,
		cache:      cache,
		idmgr:      idmgr,
		events:     NewEventBus(log),
		log:        log,
		candidates: make(map[string]struct{}),
	}
	if dc, ok := cache.(*DefaultCache); ok {
		dc.SetDestroyHook(func(id string, data *Data) {
			m.events.fireDestroyed(id, data)
		})
		if cfg.IdlePassivationTimeoutSec > 0 {
			dc.SetInactivityLimit(cfg.IdlePassivationTimeoutSec * 1000)
		}
		dc.SetStalePeriod(cfg.stalePeriodMs())
		dc.SetSavePeriod(cfg.SavePeriodSec * 1000)
	}
	idmgr.Register(m)
	return m, nil
}

// Events returns the manager's listener bus for registering callbacks.
func (m *Manager) Events() *EventBus { return m.events }

// ContextPath implements Handler.
func (m *Manager) ContextPath() string { return m.cfg.ContextPath }

// IsIDInUse implements Handler: reports whether id is currently resident.
func (m *Manager) IsIDInUse(id string) bool { return m.cache.Contains(id) }

// HandleInvalidate implements Handler: invalidates id locally without further fan-out
// (the IDManager is the one doing the fanning-out).
func (m *Manager) HandleInvalidate(id string) {
	ctx := context.Background()
	if _, err := m.cache.Delete(ctx, id); err != nil {
		m.log.Error("session fan-out invalidate failed", slog.String("id", id), slog.Any("error", err))
	}
}

// HandleRename implements Handler: renames oldID to newID locally if present.
func (m *Manager) HandleRename(oldID, newID string) {
	if !m.cache.Contains(oldID) {
		return
	}
	ctx := context.Background()
	if err := m.cache.RenewSessionID(ctx, oldID, newID); err != nil {
		m.log.Error("session fan-out rename failed", slog.String("oldId", oldID), slog.Any("error", err))
		return
	}
	m.events.fireIDChanged(oldID, newID)
}

// CreateSession mints a new id, constructs and write-through-persists its Data, and
// dispatches a created event. Returns the minted id and the live Session.
func (m *Manager) CreateSession(ctx context.Context, now int64) (string, *Session, error) {
	id := m.idmgr.NewSessionID("", now)
	sess, err := m.cache.NewSession(ctx, id, m.cfg.ContextPath, m.cfg.VHost, now, m.cfg.maxInactiveMs())
	if err != nil {
		return "", nil, fmt.Errorf("session: create: %w", err)
	}
	m.events.fireCreated(id, sess.Snapshot())
	return id, sess, nil
}

// GetSession returns the session for requestedID, or nil if absent or expired. On a
// stale read the cache transparently reloads; on store unreadability the id is
// invalidated across every context.
func (m *Manager) GetSession(ctx context.Context, requestedID string) (*Session, error) {
	sess, err := m.cache.Get(ctx, requestedID)
	if err != nil {
		if errors.Is(err, ErrUnreadable) {
			m.idmgr.InvalidateAll(requestedID)
			return nil, nil
		}
		return nil, fmt.Errorf("session: get: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	ok, err := sess.Access(nowMs())
	if err != nil {
		return nil, nil
	}
	if !ok {
		m.HandleInvalidate(requestedID)
		m.idmgr.InvalidateAll(requestedID)
		return nil, nil
	}

	m.mu.Lock()
	m.candidates[requestedID] = struct{}{}
	m.mu.Unlock()

	return sess, nil
}

// Invalidate removes id from this context's cache and store, then fans invalidation out
// to every registered context, this one included.
func (m *Manager) Invalidate(ctx context.Context, id string) error {
	sess, err := m.cache.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("session: invalidate: %w", err)
	}
	if sess != nil {
		data := sess.Snapshot()
		_ = sess.Invalidate(nil)
		m.events.fireDestroyed(id, data)
	}
	m.idmgr.InvalidateAll(id)
	return nil
}

// RenewSessionID mints a new id for oldID (defense against session fixation) and fans
// the rename out to every registered context. Returns the new id.
func (m *Manager) RenewSessionID(ctx context.Context, oldID string, now int64) (string, error) {
	newID := m.idmgr.NewSessionID("", now)
	if err := m.cache.RenewSessionID(ctx, oldID, newID); err != nil {
		return "", fmt.Errorf("session: renew id: %w", err)
	}
	for _, h := range m.idmgr.snapshotHandlers() {
		if h.ContextPath() == m.cfg.ContextPath {
			continue
		}
		h.HandleRename(oldID, newID)
	}
	m.events.fireIDChanged(oldID, newID)
	return newID, nil
}

// Complete ends a request's use of sess: decrements its ref count and, per the
// configured eviction policy, writes it through and/or passivates it.
func (m *Manager) Complete(ctx context.Context, sess *Session) error {
	id := sess.ID()
	if wc, ok := m.cache.(writeThroughCache); ok {
		return wc.CompleteRequest(ctx, id, sess)
	}
	sess.Complete()
	if !sess.Dirty() {
		return nil
	}
	_, err := m.cache.Put(ctx, id, sess)
	return err
}

// Candidates implements Scavengeable: returns (and clears) the set of ids recently
// accessed in this context that may now be near expiry.
func (m *Manager) Candidates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.candidates))
	for id := range m.candidates {
		out = append(out, id)
	}
	m.candidates = make(map[string]struct{})
	return out
}

// Scavenge implements Scavengeable: asks the cache to confirm and invalidate candidates,
// fans invalidation for every confirmed id out to every registered context (this one
// included), then gives the
// cache a chance to refresh any idle, non-dirty resident sessions per SavePeriodSec.
func (m *Manager) Scavenge(ctx context.Context, candidates []string, now int64) error {
	expired, err := m.cache.CheckExpiration(ctx, candidates, now)
	if err != nil {
		return fmt.Errorf("session: scavenge: %w", err)
	}
	for _, id := range expired {
		m.idmgr.InvalidateAll(id)
	}
	if pr, ok := m.cache.(periodicRefresher); ok {
		if err := pr.RefreshIdle(ctx, now); err != nil {
			m.log.Error("session periodic refresh failed", slog.Any("error", err))
		}
	}
	return nil
}

// Shutdown drains this context's cache: dirty resident sessions are written through and
// the table is cleared, then this manager is unregistered from the IDManager.
func (m *Manager) Shutdown(ctx context.Context) error {
	defer m.idmgr.Unregister(m.cfg.ContextPath)
	return m.cache.Shutdown(ctx)
}

// SetAttribute sets name on sess and dispatches attributeAdded or attributeReplaced,
// depending on whether name was previously present.
func (m *Manager) SetAttribute(sess *Session, name string, value any) error {
	old, replaced, err := sess.SetAttribute(name, value)
	if err != nil {
		return err
	}
	if replaced {
		m.events.fireAttributeReplaced(sess.ID(), name, old, value)
	} else {
		m.events.fireAttributeAdded(sess.ID(), name, value)
	}
	return nil
}

// RemoveAttribute removes name from sess and dispatches attributeRemoved if it was
// present.
func (m *Manager) RemoveAttribute(sess *Session, name string) error {
	old, existed, err := sess.RemoveAttribute(name)
	if err != nil {
		return err
	}
	if existed {
		m.events.fireAttributeRemoved(sess.ID(), name, old)
	}
	return nil
}
