package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreStoreLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	require.NoError(t, store.Initialize(Context{}))

	d := NewData("s1", "/app", "", 0, 0)
	d.SetAttribute("k", "v")

	require.NoError(t, store.Store(ctx, "s1", d, 0))
	assert.True(t, d.LastSaved > 0)

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	v, ok := got.GetAttribute("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemStoreLoadReturnsDeepCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	d := NewData("s1", "", "", 0, 0)
	require.NoError(t, store.Store(ctx, "s1", d, 0))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	got.SetAttribute("k", "v")

	got2, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	_, ok := got2.GetAttribute("k")
	assert.False(t, ok)
}

func TestMemStoreLoadMissingReturnsErrNotFound(t *testing.T) {
	store := NewMemStore()
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreDeleteThenExistsThenDeleteAgain(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	d := NewData("s1", "", "", 0, 0)
	require.NoError(t, store.Store(ctx, "s1", d, 0))

	deleted, err := store.Delete(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err := store.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, exists)

	deleted, err = store.Delete(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestMemStoreGetExpiredFindsCandidatesAndOrphans(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	expired := NewData("expired", "", "", 0, 1000)
	expired.Access(0)
	require.NoError(t, store.Store(ctx, "expired", expired, 0))

	alive := NewData("alive", "", "", 0, 1_000_000)
	alive.Access(0)
	require.NoError(t, store.Store(ctx, "alive", alive, 0))

	ids, err := store.GetExpired(ctx, []string{"alive", "gone"}, 5000)
	require.NoError(t, err)

	assert.Contains(t, ids, "gone")
	assert.Contains(t, ids, "expired")
	assert.NotContains(t, ids, "alive")
}

func TestMemStoreGetExpiredEmptyInputReturnsOnlyOrphans(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	d := NewData("s1", "", "", 0, 1000)
	require.NoError(t, store.Store(ctx, "s1", d, 0))

	ids, err := store.GetExpired(ctx, nil, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}
