// Package session keeps a practice session's recommended set between
// requests and prunes it as moves are played.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/hailam/repertoire/internal/repertoire"
)

const backendMemory = "memory"

// MemoryCache holds recommended sets in process. Each session has its own
// lock, so mark-played updates on one session serialise without blocking
// other sessions.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	swept   time.Time
	hits    uint64
	misses  uint64
}

type entry struct {
	mu      sync.Mutex
	groups  []repertoire.PositionGroup
	updated time.Time
}

// NewMemoryCache creates a cache whose entries expire ttl after their last
// update. A ttl of zero keeps entries until cleared.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// entry returns the session's entry, creating it when create is set.
// Creating an entry also sweeps expired sessions, at most once per ttl.
func (c *MemoryCache) entry(sessionID string, create bool) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[sessionID]
	if !ok && create {
		c.sweepLocked()
		e = &entry{}
		c.entries[sessionID] = e
	}
	return e
}

func (c *MemoryCache) expired(e *entry) bool {
	return c.ttl > 0 && c.now().Sub(e.updated) > c.ttl
}

// sweepLocked drops expired sessions. c.mu must be held.
func (c *MemoryCache) sweepLocked() {
	if c.ttl <= 0 {
		return
	}
	now := c.now()
	if now.Sub(c.swept) < c.ttl {
		return
	}
	c.swept = now
	for id, e := range c.entries {
		e.mu.Lock()
		stale := e.groups != nil && c.expired(e)
		e.mu.Unlock()
		if stale {
			delete(c.entries, id)
		}
	}
}

// dropExpired removes the session if it still maps to e and e has expired.
func (c *MemoryCache) dropExpired(sessionID string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[sessionID]; ok && cur == e {
		e.mu.Lock()
		stale := c.expired(e)
		e.mu.Unlock()
		if stale {
			delete(c.entries, sessionID)
		}
	}
}

// Get returns a copy of the session's set. Expired sessions are dropped and
// reported as a miss.
func (c *MemoryCache) Get(ctx context.Context, sessionID string) ([]repertoire.PositionGroup, bool, error) {
	e := c.entry(sessionID, false)
	if e == nil {
		c.count(false)
		return nil, false, nil
	}

	e.mu.Lock()
	var groups []repertoire.PositionGroup
	stale := e.groups != nil && c.expired(e)
	hit := e.groups != nil && !stale
	if hit {
		groups = repertoire.CloneGroups(e.groups)
	}
	e.mu.Unlock()

	if stale {
		c.dropExpired(sessionID, e)
	}
	c.count(hit)
	return groups, hit, nil
}

// Set stores a copy of groups as the session's set.
func (c *MemoryCache) Set(ctx context.Context, sessionID string, groups []repertoire.PositionGroup) error {
	e := c.entry(sessionID, true)
	e.mu.Lock()
	e.groups = repertoire.CloneGroups(groups)
	if e.groups == nil {
		e.groups = []repertoire.PositionGroup{}
	}
	e.updated = c.now()
	e.mu.Unlock()

	// A sweep may have dropped the entry while it was expired.
	c.mu.Lock()
	if _, ok := c.entries[sessionID]; !ok {
		c.entries[sessionID] = e
	}
	c.mu.Unlock()
	return nil
}

// MarkPlayed flags the edge as played and prunes finished lines. Marking an
// edge twice, or marking in an unknown session, is a no-op.
func (c *MemoryCache) MarkPlayed(ctx context.Context, sessionID string, edgeID int64) error {
	e := c.entry(sessionID, false)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	if e.groups == nil {
		e.mu.Unlock()
		return nil
	}
	cacheMarks.WithLabelValues(backendMemory).Inc()
	e.groups = repertoire.MarkPlayed(e.groups, edgeID)
	e.updated = c.now()
	exhausted := len(e.groups) == 0
	e.mu.Unlock()

	if exhausted {
		cacheExhausted.WithLabelValues(backendMemory).Inc()
		c.remove(sessionID, e)
	}
	return nil
}

// Clear forgets the session.
func (c *MemoryCache) Clear(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
	return nil
}

// remove drops the session only if it still maps to e, so a Set that raced
// the prune is kept.
func (c *MemoryCache) remove(sessionID string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[sessionID]; ok && cur == e {
		e.mu.Lock()
		empty := len(e.groups) == 0
		e.mu.Unlock()
		if empty {
			delete(c.entries, sessionID)
		}
	}
}

func (c *MemoryCache) count(hit bool) {
	recordLookup(backendMemory, hit)
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// HitRate returns the cache hit rate as a percentage.
func (c *MemoryCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// Len returns the number of sessions held.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
