package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return NewSession(NewData("s1", "", "", 0, 10_000))
}

func TestAccessIncrementsRefsAndUpdatesTimestamps(t *testing.T) {
	s := newTestSession()
	ok, err := s.Access(1000)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Refs())
}

func TestAccessOnInvalidReturnsErrInvalid(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.Invalidate(nil))

	_, err := s.Access(1000)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAccessPastExpiryReturnsFalseNoError(t *testing.T) {
	s := newTestSession()
	ok, err := s.Access(1_000_000)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompleteDecrementsRefs(t *testing.T) {
	s := newTestSession()
	s.Access(0)
	s.Access(0)
	assert.Equal(t, 1, s.Complete())
	assert.Equal(t, 0, s.Complete())
	assert.Equal(t, 0, s.Complete())
}

func TestInvalidateTransitionsToInvalid(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.Invalidate(nil))
	assert.Equal(t, StateInvalid, s.State())

	_, _, err := s.SetAttribute("k", "v")
	assert.ErrorIs(t, err, ErrInvalid)

	assert.ErrorIs(t, s.Invalidate(nil), ErrInvalid)
}

func TestConcurrentInvalidateOnlyOneWinner(t *testing.T) {
	s := newTestSession()
	var wg sync.WaitGroup
	var calls int
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Invalidate(func(*Data) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
			if err != nil {
				assert.True(t, errors.Is(err, ErrInvalid))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	assert.Equal(t, StateInvalid, s.State())
}

func TestSetGetRemoveAttributeThroughSession(t *testing.T) {
	s := newTestSession()
	old, replaced, err := s.SetAttribute("k", "v1")
	require.NoError(t, err)
	assert.Nil(t, old)
	assert.False(t, replaced)

	old, replaced, err = s.SetAttribute("k", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v1", old)
	assert.True(t, replaced)

	v, err := s.GetAttribute("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	old, existed, err := s.RemoveAttribute("k")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, "v2", old)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := newTestSession()
	s.SetAttribute("k", "v")

	snap := s.Snapshot()
	snap.SetAttribute("k", "mutated")

	v, _ := s.GetAttribute("k")
	assert.Equal(t, "v", v)
}

func TestMarkCleanClearsDirtyAndStampsLastSaved(t *testing.T) {
	s := newTestSession()
	s.SetAttribute("k", "v")
	assert.True(t, s.Dirty())

	s.MarkClean(5000)
	assert.False(t, s.Dirty())
	assert.Equal(t, int64(5000), s.LastSaved())
}
