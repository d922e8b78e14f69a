package lru_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gridscreen/pkg/alg/lru"
)

func byteLen(v string) int64 {
	return int64(len(v))
}

func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](10))

	got, found := cache.Get(1)
	assert.False(t, found)
	assert.Empty(t, got)

	cache.Put(1, "hello")

	got, found = cache.Get(1)
	require.True(t, found)
	assert.Equal(t, "hello", got)

	cache.Put(1, "world")

	got, _ = cache.Get(1)
	assert.Equal(t, "world", got)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, string](3))

	cache.Put(1, "a")
	cache.Put(2, "b")
	cache.Put(3, "c")

	_, _ = cache.Get(1)

	cache.Put(4, "d")

	_, found := cache.Get(2)
	assert.False(t, found, "2 was least recently used")

	for _, key := range []int{1, 3, 4} {
		_, found = cache.Get(key)
		assert.True(t, found, "key %d", key)
	}

	assert.Equal(t, int64(1), cache.Stats().Evictions)
}

func TestCache_SizeBound(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxBytes[string, string](10, byteLen))

	cache.Put("a", "12345")
	cache.Put("b", "1234")
	assert.Equal(t, int64(9), cache.Stats().CurrentSize)

	cache.Put("c", "123")

	_, found := cache.Get("a")
	assert.False(t, found)
	assert.Equal(t, int64(7), cache.Stats().CurrentSize)

	cache.Put("huge", "12345678901")

	_, found = cache.Get("huge")
	assert.False(t, found, "values above the byte budget are not stored")
	assert.Equal(t, 2, cache.Len())

	cache.Put("b", "12345678")

	stats := cache.Stats()
	assert.Equal(t, int64(8), stats.CurrentSize)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_StatsAndClear(t *testing.T) {
	t.Parallel()

	cache := lru.New(
		lru.WithMaxEntries[string, string](4),
		lru.WithMaxBytes[string, string](100, byteLen),
	)

	cache.Put("x", "abc")
	_, _ = cache.Get("x")
	_, _ = cache.Get("y")
	_, _ = cache.Get("y")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.InDelta(t, 1.0/3.0, stats.HitRate(), 1e-12)
	assert.Equal(t, 4, stats.MaxEntries)
	assert.Equal(t, int64(100), stats.MaxSize)

	cache.Clear()

	assert.Zero(t, cache.Len())
	assert.Zero(t, cache.Stats().CurrentSize)
	assert.Equal(t, int64(1), cache.Stats().Hits)

	cache.Put("z", "1")

	got, found := cache.Get("z")
	require.True(t, found)
	assert.Equal(t, "1", got)
}

func TestStats_HitRateEmpty(t *testing.T) {
	t.Parallel()

	assert.Zero(t, lru.Stats{}.HitRate())
}

func TestNew_RequiresLimit(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { lru.New[int, int]() })
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	cache := lru.New(lru.WithMaxEntries[int, int](16))

	var wg sync.WaitGroup

	for g := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 200 {
				cache.Put(g*1000+i, i)
				_, _ = cache.Get(g*1000 + i/2)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 16)
}
