package idempotency

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"gateway/internal/constants"
)

// LRUFilter is a bounded in-memory Filter with least-recently-used eviction.
// A hit refreshes the key's recency. Keys survive until evicted or until the
// process exits.
type LRUFilter struct {
	mu    sync.Mutex // makes the lookup and insert of SeenBefore one step
	cache *lru.Cache[string, time.Time]
	now   func() time.Time
}

func NewLRUFilter(capacity int) *LRUFilter {
	if capacity < 1 {
		capacity = constants.DefaultIdempotencyCapacity
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, time.Time](capacity)
	return &LRUFilter{
		cache: cache,
		now:   time.Now,
	}
}

func (f *LRUFilter) SeenBefore(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.cache.Get(key); ok {
		return true, nil
	}
	f.cache.Add(key, f.now())
	return false, nil
}

func (f *LRUFilter) Forget(_ context.Context, key string) error {
	f.cache.Remove(key)
	return nil
}

func (f *LRUFilter) Len() int {
	return f.cache.Len()
}
