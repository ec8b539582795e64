package cache

import (
	"context"
	"testing"

	"github.com/hupe1980/colseg/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(30, nil)

	for i := range 3 {
		c.Set(ctx, Key{Kind: KindBlob, Path: "a", Offset: uint64(i)}, make([]byte, 10))
	}
	assert.Equal(t, int64(30), c.Size())

	// Touch block 0 so block 1 becomes the eviction candidate.
	_, ok := c.Get(ctx, Key{Kind: KindBlob, Path: "a", Offset: 0})
	require.True(t, ok)

	c.Set(ctx, Key{Kind: KindBlob, Path: "a", Offset: 3}, make([]byte, 10))
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get(ctx, Key{Kind: KindBlob, Path: "a", Offset: 1})
	assert.False(t, ok)
	_, ok = c.Get(ctx, Key{Kind: KindBlob, Path: "a", Offset: 0})
	assert.True(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_EdgeCases(t *testing.T) {
	ctx := context.Background()
	k := Key{Kind: KindBlob, Path: "x", Offset: 1}

	t.Run("larger than capacity", func(t *testing.T) {
		c := NewLRU(50, nil)
		c.Set(ctx, k, make([]byte, 60))
		_, ok := c.Get(ctx, k)
		assert.False(t, ok)
	})

	t.Run("update resizes", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
		c := NewLRU(50, rc)
		c.Set(ctx, k, make([]byte, 10))
		c.Set(ctx, k, make([]byte, 20))
		assert.Equal(t, int64(20), c.Size())
		assert.Equal(t, int64(20), rc.MemoryUsage())

		c.Set(ctx, k, make([]byte, 5))
		assert.Equal(t, int64(5), c.Size())
		assert.Equal(t, int64(5), rc.MemoryUsage())
	})

	t.Run("memory budget refuses growth", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 10})
		c := NewLRU(50, rc)
		c.Set(ctx, k, make([]byte, 8))
		c.Set(ctx, k, make([]byte, 12))

		val, ok := c.Get(ctx, k)
		require.True(t, ok)
		assert.Len(t, val, 8)
	})
}

func TestLRU_Invalidate(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1000})
	c := NewLRU(100, rc)

	c.Set(ctx, Key{Kind: KindBlob, Path: "a", Offset: 0}, make([]byte, 10))
	c.Set(ctx, Key{Kind: KindBlob, Path: "a", Offset: 1}, make([]byte, 10))
	c.Set(ctx, Key{Kind: KindBlob, Path: "b", Offset: 0}, make([]byte, 10))

	c.Invalidate(ForPath(KindBlob, "a"))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(10), rc.MemoryUsage())

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), rc.MemoryUsage())
}
