package explorer

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hailam/repertoire/internal/board"
)

// CachedSource wraps another source with a bounded cache keyed by position.
// Concurrent lookups of the same position share one upstream request.
type CachedSource struct {
	inner   Source
	cache   map[string][]Response
	mu      sync.RWMutex
	maxSize int
	hits    uint64
	misses  uint64
	flight  singleflight.Group
}

// NewCachedSource creates a cached source wrapping inner.
func NewCachedSource(inner Source, cacheSize int) *CachedSource {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	return &CachedSource{
		inner:   inner,
		cache:   make(map[string][]Response, cacheSize),
		maxSize: cacheSize,
	}
}

func (cs *CachedSource) TopResponses(ctx context.Context, fen string) ([]Response, error) {
	key := board.PositionKey(fen)
	if key == "" {
		return nil, nil
	}

	cs.mu.Lock()
	if result, ok := cs.cache[key]; ok {
		cs.hits++
		cs.mu.Unlock()
		return result, nil
	}
	cs.misses++
	cs.mu.Unlock()

	v, err, _ := cs.flight.Do(key, func() (interface{}, error) {
		return cs.inner.TopResponses(ctx, fen)
	})
	if err != nil {
		return nil, err
	}
	result, _ := v.([]Response)

	cs.mu.Lock()
	if len(cs.cache) >= cs.maxSize {
		// Simple eviction: clear half the cache
		i := 0
		for k := range cs.cache {
			if i >= cs.maxSize/2 {
				break
			}
			delete(cs.cache, k)
			i++
		}
	}
	cs.cache[key] = result
	cs.mu.Unlock()

	return result, nil
}

// HitRate returns the cache hit rate as a percentage.
func (cs *CachedSource) HitRate() float64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	total := cs.hits + cs.misses
	if total == 0 {
		return 0
	}
	return float64(cs.hits) / float64(total) * 100
}

// CacheSize returns the current number of cached positions.
func (cs *CachedSource) CacheSize() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.cache)
}
