package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultCache is the caching SessionCache strategy: materialized Session objects stay
// resident according to Policy until explicitly removed, idle too long (EvictOnInactivity),
// or passivated on request exit (EvictOnSessionExit).
type DefaultCache struct {
	store         DataStore
	policy        EvictionPolicy
	inactivityMs  int64
	stalePeriodMs int64
	savePeriodMs  int64
	log           *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sf singleflight.Group

	// onDestroy is invoked with the id and final Data whenever CheckExpiration removes a
	// resident entry, letting the owning Manager fan out a sessionDestroyed event without
	// the cache importing the event bus. Delete does not invoke it.
	onDestroy func(id string, data *Data)
}

// NewDefaultCache returns a Default-strategy cache backed by store, using policy for
// eviction. stalePeriodMs <= 0 disables the staleness check. A nil logger defaults to
// discard.
func NewDefaultCache(store DataStore, policy EvictionPolicy, stalePeriodMs int64, log *slog.Logger) *DefaultCache {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &DefaultCache{
		store:         store,
		policy:        policy,
		stalePeriodMs: stalePeriodMs,
		log:           log,
		sessions:      make(map[string]*Session),
	}
}

// SetInactivityLimit configures the idle duration used by EvictOnInactivity, in
// milliseconds.
func (c *DefaultCache) SetInactivityLimit(ms int64) { c.inactivityMs = ms }

// SetStalePeriod overrides the staleness threshold used by Get, in milliseconds. <= 0
// disables the check.
func (c *DefaultCache) SetStalePeriod(ms int64) { c.stalePeriodMs = ms }

// SetSavePeriod configures how often RefreshIdle re-stores a resident, non-dirty
// session to bump its LastSaved, in milliseconds. <= 0 disables periodic refresh.
func (c *DefaultCache) SetSavePeriod(ms int64) { c.savePeriodMs = ms }

// SetDestroyHook registers fn to be called whenever a resident Session is removed due to
// confirmed expiration. Only one hook is supported; a later call replaces an earlier one.
func (c *DefaultCache) SetDestroyHook(fn func(id string, data *Data)) { c.onDestroy = fn }

func (c *DefaultCache) Get(ctx context.Context, id string) (*Session, error) {
	c.mu.RLock()
	sess, ok := c.sessions[id]
	c.mu.RUnlock()

	if ok {
		if c.isStale(sess) {
			c.mu.Lock()
			if cur, still := c.sessions[id]; still && cur == sess {
				delete(c.sessions, id)
			}
			c.mu.Unlock()
		} else {
			return sess, nil
		}
	}

	v, err, _ := c.sf.Do(id, func() (any, error) {
		c.mu.RLock()
		if sess, ok := c.sessions[id]; ok {
			c.mu.RUnlock()
			return sess, nil
		}
		c.mu.RUnlock()

		data, err := c.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		sess := NewSession(data)

		c.mu.Lock()
		if existing, ok := c.sessions[id]; ok {
			c.mu.Unlock()
			return existing, nil
		}
		c.sessions[id] = sess
		c.mu.Unlock()
		return sess, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v.(*Session), nil
}

func (c *DefaultCache) isStale(sess *Session) bool {
	if c.stalePeriodMs <= 0 {
		return false
	}
	return nowMs()-sess.LastSaved() >= c.stalePeriodMs
}

func (c *DefaultCache) Put(_ context.Context, id string, sess *Session) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.sessions[id]; ok {
		return existing, ErrConflict
	}
	c.sessions[id] = sess
	return sess, nil
}

func (c *DefaultCache) Delete(ctx context.Context, id string) (*Session, error) {
	c.mu.Lock()
	sess, ok := c.sessions[id]
	delete(c.sessions, id)
	c.mu.Unlock()

	if _, err := c.store.Delete(ctx, id); err != nil {
		c.log.Error("session store delete failed", slog.String("id", id), slog.Any("error", err))
	}
	if !ok {
		return nil, nil
	}
	return sess, nil
}

func (c *DefaultCache) CheckExpiration(ctx context.Context, candidates []string, now int64) ([]string, error) {
	expired, err := c.store.GetExpired(ctx, candidates, now)
	if err != nil {
		return nil, fmt.Errorf("session: check expiration: %w", err)
	}
	for _, id := range expired {
		c.mu.Lock()
		sess, ok := c.sessions[id]
		if ok {
			delete(c.sessions, id)
		}
		c.mu.Unlock()

		if !ok {
			continue
		}
		data := sess.Snapshot()
		_ = sess.Invalidate(nil)
		if c.onDestroy != nil {
			c.onDestroy(id, data)
		}
	}
	return expired, nil
}

func (c *DefaultCache) RenewSessionID(ctx context.Context, oldID, newID string) error {
	c.mu.Lock()
	sess, ok := c.sessions[oldID]
	if !ok {
		c.mu.Unlock()
		return ErrNotFound
	}
	if _, taken := c.sessions[newID]; taken {
		c.mu.Unlock()
		return ErrConflict
	}
	delete(c.sessions, oldID)
	sess.reseatID(newID)
	c.sessions[newID] = sess
	c.mu.Unlock()

	data := sess.Snapshot()
	if _, err := c.store.Delete(ctx, oldID); err != nil {
		c.log.Error("session store delete during rename failed", slog.String("id", oldID), slog.Any("error", err))
	}
	if err := c.store.Store(ctx, newID, data, 0); err != nil {
		return fmt.Errorf("session: store renewed id: %w", err)
	}
	sess.MarkClean(data.LastSaved)
	return nil
}

func (c *DefaultCache) NewSession(ctx context.Context, id, contextPath, vhost string, now int64, maxInactiveMs int64) (*Session, error) {
	data := NewData(id, contextPath, vhost, now, maxInactiveMs)
	if err := c.store.Store(ctx, id, data, 0); err != nil {
		return nil, fmt.Errorf("session: store new session: %w", err)
	}
	sess := NewSession(data)

	c.mu.Lock()
	if existing, ok := c.sessions[id]; ok {
		c.mu.Unlock()
		return existing, ErrConflict
	}
	c.sessions[id] = sess
	c.mu.Unlock()
	return sess, nil
}

func (c *DefaultCache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sessions[id]
	return ok
}

// PassivateIdleSession evicts id from memory, storing first, if EvictOnInactivity is the
// configured policy and the session has been idle longer than the configured limit.
func (c *DefaultCache) PassivateIdleSession(ctx context.Context, id string, now int64) error {
	if c.policy != EvictOnInactivity || c.inactivityMs <= 0 {
		return nil
	}
	c.mu.RLock()
	sess, ok := c.sessions[id]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	data := sess.Snapshot()
	if now-data.LastAccessed < c.inactivityMs {
		return nil
	}
	return c.passivate(ctx, id, sess)
}

// RefreshIdle re-stores every resident, non-dirty session whose last save is older than
// the configured save period, bumping LastSaved without evicting it from the cache. A
// savePeriodMs of 0 makes this a no-op. Called by Manager.Scavenge on each housekeeper
// tick, so a session that a user keeps idly open still has its durable copy's LastSaved
// advance (and, for stores with their own TTL like sessionstore/redis, its expiry
// refreshed) even though nothing about it is dirty.
func (c *DefaultCache) RefreshIdle(ctx context.Context, now int64) error {
	if c.savePeriodMs <= 0 {
		return nil
	}
	c.mu.RLock()
	due := make([]*Session, 0)
	for _, sess := range c.sessions {
		if !sess.Dirty() && now-sess.LastSaved() >= c.savePeriodMs {
			due = append(due, sess)
		}
	}
	c.mu.RUnlock()

	var lastErr error
	for _, sess := range due {
		if err := c.writeThrough(ctx, sess.ID(), sess); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// CompleteRequest is called by the Manager when a request finishes with sess. If the
// configured policy is EvictOnSessionExit and the ref count has reached zero, the
// session is written through and evicted.
func (c *DefaultCache) CompleteRequest(ctx context.Context, id string, sess *Session) error {
	refs := sess.Complete()
	if c.policy != EvictOnSessionExit || refs > 0 {
		if sess.Dirty() {
			return c.writeThrough(ctx, id, sess)
		}
		return nil
	}
	return c.passivate(ctx, id, sess)
}

func (c *DefaultCache) writeThrough(ctx context.Context, id string, sess *Session) error {
	data := sess.Snapshot()
	if err := c.store.Store(ctx, id, data, sess.LastSaved()); err != nil {
		c.log.Error("session write-through failed", slog.String("id", id), slog.Any("error", err))
		return Transient(err)
	}
	sess.MarkClean(data.LastSaved)
	return nil
}

func (c *DefaultCache) passivate(ctx context.Context, id string, sess *Session) error {
	if err := c.writeThrough(ctx, id, sess); err != nil {
		return err
	}
	c.mu.Lock()
	if cur, ok := c.sessions[id]; ok && cur == sess {
		delete(c.sessions, id)
	}
	c.mu.Unlock()
	return nil
}

// Shutdown writes dirty entries through and clears the table, bounded so concurrent
// inserts during the drain cannot livelock it.
func (c *DefaultCache) Shutdown(ctx context.Context) error {
	const maxIterations = 64
	var lastErr error
	for i := 0; i < maxIterations; i++ {
		c.mu.Lock()
		if len(c.sessions) == 0 {
			c.mu.Unlock()
			return lastErr
		}
		batch := make(map[string]*Session, len(c.sessions))
		for id, sess := range c.sessions {
			batch[id] = sess
			delete(c.sessions, id)
		}
		c.mu.Unlock()

		for id, sess := range batch {
			if sess.Dirty() {
				if err := c.writeThrough(ctx, id, sess); err != nil {
					lastErr = err
				}
			}
		}
	}
	return lastErr
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
