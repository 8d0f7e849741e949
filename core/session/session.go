package session

import "sync"

// State is a Session's position in its validity lifecycle.
type State int

const (
	// StateValid is the initial state after construction; access and mutation are
	// permitted.
	StateValid State = iota
	// StateInvalidating means invalidation is in progress on some goroutine; attribute
	// reads still see the last-valid data, but no new access is admitted.
	StateInvalidating
	// StateInvalid is terminal. Attribute reads return ErrInvalid.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateInvalidating:
		return "invalidating"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Session is the thread-safe runtime wrapper around a Data record. Exactly one Session
// exists per (id, context) at any instant, owned by the SessionCache that materialized
// it. Every mutating operation takes the session's own lock; callers never need an
// external lock to touch a Session safely.
type Session struct {
	mu    sync.Mutex
	data  *Data
	state State
	refs  int

	// invalidated is closed the instant state becomes StateInvalid, letting a
	// concurrent caller that observed StateInvalidating wait for the outcome instead
	// of busy-polling.
	invalidated chan struct{}
}

// NewSession wraps data as a fresh, valid Session.
func NewSession(data *Data) *Session {
	return &Session{
		data:        data,
		state:       StateValid,
		invalidated: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the session id without requiring the caller to reach into Data.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ID
}

// Access records a request touching the session at time now. Returns false, ErrInvalid
// if the session is not StateValid; no mutation happens in that case. Returns false
// without error, again without mutation, if the session had already expired at now, so
// the caller can treat it as expired-on-touch.
func (s *Session) Access(now int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateValid {
		return false, ErrInvalid
	}
	if s.data.IsExpiredAt(now) {
		return false, nil
	}
	s.data.Access(now)
	s.refs++
	return true, nil
}

// Complete records a request finishing with the session. Returns the ref count after
// decrementing so the caller (the cache/manager) can decide whether to passivate or
// write through.
func (s *Session) Complete() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs > 0 {
		s.refs--
	}
	return s.refs
}

// Refs returns the current request-reference count.
func (s *Session) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Invalidate transitions VALID -> INVALIDATING -> INVALID, running fn while the lock is
// released so listener dispatch can proceed without holding the session lock across
// caller-supplied work. If another goroutine is already invalidating, Invalidate waits
// for that invalidation to finish and returns ErrInvalid without running fn again.
func (s *Session) Invalidate(fn func(data *Data)) error {
	s.mu.Lock()
	switch s.state {
	case StateInvalid:
		s.mu.Unlock()
		return ErrInvalid
	case StateInvalidating:
		ch := s.invalidated
		s.mu.Unlock()
		<-ch
		return ErrInvalid
	}
	s.state = StateInvalidating
	data := s.data
	s.mu.Unlock()

	if fn != nil {
		fn(data)
	}

	s.mu.Lock()
	s.state = StateInvalid
	close(s.invalidated)
	s.mu.Unlock()
	return nil
}

// IsExpiredAt reports whether the underlying data is expired at t. Safe to call
// regardless of state.
func (s *Session) IsExpiredAt(t int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.IsExpiredAt(t)
}

// GetAttribute returns the named attribute. Returns ErrInvalid if the session is
// StateInvalid.
func (s *Session) GetAttribute(name string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInvalid {
		return nil, ErrInvalid
	}
	v, _ := s.data.GetAttribute(name)
	return v, nil
}

// SetAttribute stores value under name. Returns ErrInvalid if the session is not
// StateValid — attributes may not be mutated once invalidation has begun.
func (s *Session) SetAttribute(name string, value any) (old any, replaced bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateValid {
		return nil, false, ErrInvalid
	}
	old, replaced = s.data.SetAttribute(name, value)
	return old, replaced, nil
}

// RemoveAttribute deletes name. Returns ErrInvalid if the session is not StateValid.
func (s *Session) RemoveAttribute(name string) (old any, existed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateValid {
		return nil, false, ErrInvalid
	}
	old, existed = s.data.RemoveAttribute(name)
	return old, existed, nil
}

// AttributeNames returns the current attribute key set.
func (s *Session) AttributeNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateInvalid {
		return nil, ErrInvalid
	}
	return s.data.AttributeNames(), nil
}

// Snapshot returns a deep copy of the underlying Data, safe to pass to a store outside
// the session's lock.
func (s *Session) Snapshot() *Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Dirty reports whether attributes or metadata changed since the last store.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Dirty || s.data.MetaDataDirty
}

// MarkClean clears the dirty flags and stamps LastSaved, called by the cache after a
// successful store.
func (s *Session) MarkClean(savedAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Dirty = false
	s.data.MetaDataDirty = false
	s.data.LastSaved = savedAt
}

// LastSaved returns the timestamp of the last successful store, or 0 if never stored.
func (s *Session) LastSaved() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastSaved
}

// reseatID swaps the session's identity in place, used by renewSessionId. The caller is
// responsible for the corresponding cache/store identity swap.
func (s *Session) reseatID(newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ID = newID
}
