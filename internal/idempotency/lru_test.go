package idempotency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
	"gateway/internal/logger"
)

func TestLRUFilter_SeenBefore(t *testing.T) {
	ctx := context.Background()
	f := NewLRUFilter(10)

	seen, err := f.SeenBefore(ctx, "invoice.created-20250101120000123")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = f.SeenBefore(ctx, "invoice.created-20250101120000123")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.Equal(t, 1, f.Len())
}

func TestLRUFilter_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	f := NewLRUFilter(2)

	_, _ = f.SeenBefore(ctx, "a")
	_, _ = f.SeenBefore(ctx, "b")

	// touching a makes b the eviction candidate
	seen, _ := f.SeenBefore(ctx, "a")
	require.True(t, seen)

	_, _ = f.SeenBefore(ctx, "c")

	assert.Equal(t, 2, f.Len())
	assert.True(t, f.cache.Contains("a"))
	assert.False(t, f.cache.Contains("b"))
	assert.True(t, f.cache.Contains("c"))

	seen, _ = f.SeenBefore(ctx, "b")
	assert.False(t, seen, "evicted key is treated as new")
}

func TestLRUFilter_Forget(t *testing.T) {
	ctx := context.Background()
	f := NewLRUFilter(5)

	_, _ = f.SeenBefore(ctx, "k")
	require.NoError(t, f.Forget(ctx, "k"))
	require.NoError(t, f.Forget(ctx, "missing"))

	assert.Equal(t, 0, f.Len())
	seen, _ := f.SeenBefore(ctx, "k")
	assert.False(t, seen)
}

func TestLRUFilter_DefaultCapacity(t *testing.T) {
	ctx := context.Background()
	for _, capacity := range []int{0, -3} {
		f := NewLRUFilter(capacity)
		for i := 0; i <= 1000; i++ {
			_, _ = f.SeenBefore(ctx, fmt.Sprintf("key-%d", i))
		}
		assert.Equal(t, 1000, f.Len())
		assert.False(t, f.cache.Contains("key-0"))
		assert.True(t, f.cache.Contains("key-1000"))
	}
}

func TestLRUFilter_ConcurrentFirstSight(t *testing.T) {
	ctx := context.Background()
	f := NewLRUFilter(100)

	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, err := f.SeenBefore(ctx, "same-key")
			if err == nil && !seen {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load())
}

func TestLRUFilter_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("size never exceeds capacity", prop.ForAll(
		func(capacity int, keys []int) bool {
			f := NewLRUFilter(capacity)
			for _, k := range keys {
				_, _ = f.SeenBefore(context.Background(), fmt.Sprintf("key-%d", k))
				if f.Len() > capacity {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.Property("most recent key is always retained", prop.ForAll(
		func(capacity int, keys []int) bool {
			f := NewLRUFilter(capacity)
			for _, k := range keys {
				key := fmt.Sprintf("key-%d", k)
				_, _ = f.SeenBefore(context.Background(), key)
				if !f.cache.Contains(key) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	f := New(config.IdempotencyConfig{Store: "redis", Capacity: 7}, config.CircuitBreakerConfig{}, nil, logger.NopLogger())
	_, ok := f.(*LRUFilter)
	require.True(t, ok)
}
