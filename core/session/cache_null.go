package session

import (
	"context"
	"errors"
	"fmt"
)

// NullCache is the non-caching SessionCache strategy: every Get reloads from the store
// and every Put writes through immediately. No Session object is ever shared across two
// calls, so cross-request sharing of mutable state is structurally impossible.
type NullCache struct {
	store DataStore
}

// NewNullCache returns a non-caching cache backed by store.
func NewNullCache(store DataStore) *NullCache {
	return &NullCache{store: store}
}

func (c *NullCache) Get(ctx context.Context, id string) (*Session, error) {
	data, err := c.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return NewSession(data), nil
}

func (c *NullCache) Put(ctx context.Context, id string, sess *Session) (*Session, error) {
	data := sess.Snapshot()
	if err := c.store.Store(ctx, id, data, sess.LastSaved()); err != nil {
		return nil, Transient(err)
	}
	sess.MarkClean(data.LastSaved)
	return sess, nil
}

func (c *NullCache) Delete(ctx context.Context, id string) (*Session, error) {
	data, err := c.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := c.store.Delete(ctx, id); err != nil {
		return nil, Transient(err)
	}
	return NewSession(data), nil
}

func (c *NullCache) CheckExpiration(ctx context.Context, candidates []string, now int64) ([]string, error) {
	expired, err := c.store.GetExpired(ctx, candidates, now)
	if err != nil {
		return nil, fmt.Errorf("session: check expiration: %w", err)
	}
	return expired, nil
}

func (c *NullCache) RenewSessionID(ctx context.Context, oldID, newID string) error {
	data, err := c.store.Load(ctx, oldID)
	if err != nil {
		return err
	}
	if _, err := c.store.Delete(ctx, oldID); err != nil {
		return Transient(err)
	}
	data.ID = newID
	if err := c.store.Store(ctx, newID, data, 0); err != nil {
		return fmt.Errorf("session: store renewed id: %w", err)
	}
	return nil
}

func (c *NullCache) NewSession(ctx context.Context, id, contextPath, vhost string, now int64, maxInactiveMs int64) (*Session, error) {
	data := NewData(id, contextPath, vhost, now, maxInactiveMs)
	if err := c.store.Store(ctx, id, data, 0); err != nil {
		return nil, fmt.Errorf("session: store new session: %w", err)
	}
	return NewSession(data), nil
}

// Contains always reports false: NullCache retains nothing between calls.
func (c *NullCache) Contains(string) bool { return false }

func (c *NullCache) Shutdown(context.Context) error { return nil }
