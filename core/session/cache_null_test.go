package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullCacheGetReturnsDistinctObjectsEachCall(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	require.NoError(t, store.Store(ctx, "s6", NewData("s6", "", "", 0, 0), 0))

	cache := NewNullCache(store)

	a, err := cache.Get(ctx, "s6")
	require.NoError(t, err)
	b, err := cache.Get(ctx, "s6")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestNullCachePutWritesThroughImmediately(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	cache := NewNullCache(store)

	sess, err := cache.NewSession(ctx, "s1", "", "", 0, 0)
	require.NoError(t, err)
	sess.SetAttribute("k", "v")

	_, err = cache.Put(ctx, "s1", sess)
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	v, ok := loaded.GetAttribute("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestNullCacheContainsAlwaysFalse(t *testing.T) {
	cache := NewNullCache(NewMemStore())
	assert.False(t, cache.Contains("anything"))
}
