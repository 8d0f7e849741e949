package session

import (
	"context"
	"sync"
)

// MemStore is the in-process SessionDataStore: a guarded map, alive only as long as the
// owning process. GetExpired reports expired rows of its own map that the caller did
// not name as orphans; it has no wider view than that map.
type MemStore struct {
	mu   sync.RWMutex
	rows map[string]*Data
	ctx  Context
}

// NewMemStore returns an empty in-process store.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string]*Data)}
}

func (m *MemStore) Initialize(ctx Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
	return nil
}

// Load returns a deep copy of the stored record, since IsPassivating reports true: the
// caller must not be able to mutate the store's copy through the returned Data.
func (m *MemStore) Load(_ context.Context, id string) (*Data, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

// Store writes a clone of data, stamping LastSaved to the current time regardless of
// whether lastSaveTime indicates an insert or an update: a map assignment has no
// insert/update distinction to make, so the parameter only disambiguates semantics for
// backends that do.
func (m *MemStore) Store(_ context.Context, id string, data *Data, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := data.Clone()
	cp.LastSaved = nowMs()
	m.rows[id] = cp
	data.LastSaved = cp.LastSaved
	return nil
}

func (m *MemStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *MemStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	return !d.IsExpiredAt(nowMs()), nil
}

// GetExpired scans the map and returns ids with a set expiry at or before now. MemStore
// never discovers orphans beyond the candidates it is given plus what it can see in its
// own table, since it has no external persistence to cross-check against.
func (m *MemStore) GetExpired(_ context.Context, candidates []string, now int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool, len(candidates))
	var expired []string
	for _, id := range candidates {
		seen[id] = true
		d, ok := m.rows[id]
		if !ok || (d.Expiry > 0 && d.Expiry <= now) {
			expired = append(expired, id)
		}
	}
	for id, d := range m.rows {
		if seen[id] {
			continue
		}
		if d.Expiry > 0 && d.Expiry <= now {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (m *MemStore) IsPassivating() bool { return true }

func (m *MemStore) Healthcheck(context.Context) error { return nil }
