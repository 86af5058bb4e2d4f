package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func TestMemoryCache_TypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "p", []point{{1, 2}, {3, 4}}, time.Minute))
	got, err := GetTyped[[]point](ctx, mc, "p")
	require.NoError(t, err)
	assert.Equal(t, []point{{1, 2}, {3, 4}}, got)

	_, err = GetTyped[point](ctx, mc, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	time.Sleep(time.Millisecond)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCache_KeysAndLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, Key("portfolio", "AAPL"), 1, 0))
	require.NoError(t, mc.Set(ctx, Key("portfolio", "MSFT"), 2, 0))
	require.NoError(t, mc.Set(ctx, Key("prices", "AAPL"), 3, 0))

	keys, err := mc.Keys(ctx, "portfolio:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"portfolio:AAPL", "portfolio:MSFT"}, keys)

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
}

func TestLayeredCache_ReadsThroughRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "k", point{X: 1}, 0))
	var p point
	require.NoError(t, lc.Get(ctx, "k", &p))
	assert.Equal(t, point{X: 1}, p)

	// L1 now answers even if the remote entry is gone.
	require.NoError(t, remote.Delete(ctx, "k"))
	p = point{}
	require.NoError(t, lc.Get(ctx, "k", &p))
	assert.Equal(t, point{X: 1}, p)

	require.NoError(t, lc.Set(ctx, "w", "x", time.Minute))
	var s string
	require.NoError(t, remote.Get(ctx, "w", &s))
	assert.Equal(t, "x", s)

	require.NoError(t, lc.Delete(ctx, "k", "w"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &p), ErrCacheMiss)
}

func TestMemoryCache_ZeroDefaultTTLKeepsEntries(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryDefaultTTL(0), WithMemoryCleanup(time.Millisecond))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "portfolio:AAPL", 3, 0))
	time.Sleep(5 * time.Millisecond)
	var v int
	require.NoError(t, mc.Get(ctx, "portfolio:AAPL", &v))
	assert.Equal(t, 3, v)
}
