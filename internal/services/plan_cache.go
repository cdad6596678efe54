package services

import (
	"context"
	"sync"
	"time"

	"scanela-billing/internal/plans"
)

// PlanCache caches the resolved tier per user.
//
// Readers take a Generation before loading the row and pass it to Set. Set
// drops the value when the user was invalidated after that generation, so a
// slow read cannot overwrite a newer write.
type PlanCache interface {
	Get(ctx context.Context, userID string) (plans.Tier, bool)
	Generation(ctx context.Context, userID string) uint64
	Set(ctx context.Context, userID string, tier plans.Tier, generation uint64) bool
	Invalidate(ctx context.Context, userID string)
}

type planCacheEntry struct {
	tier      plans.Tier
	expiresAt time.Time
}

// MemoryPlanCache is a keyed, size-bounded TTL cache held in process memory.
type MemoryPlanCache struct {
	entries    map[string]planCacheEntry
	mutex      sync.RWMutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	// seq counts invalidations; invalidated holds the seq of each user's
	// last one. When invalidated is reset, floor rejects older generations.
	seq         uint64
	invalidated map[string]uint64
	floor       uint64
}

// NewMemoryPlanCache creates an in-memory plan cache
func NewMemoryPlanCache(ttl time.Duration, maxEntries int) *MemoryPlanCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &MemoryPlanCache{
		entries:     make(map[string]planCacheEntry),
		ttl:         ttl,
		maxEntries:  maxEntries,
		now:         time.Now,
		invalidated: make(map[string]uint64),
	}
}

func (c *MemoryPlanCache) Get(_ context.Context, userID string) (plans.Tier, bool) {
	c.mutex.RLock()
	entry, ok := c.entries[userID]
	c.mutex.RUnlock()

	if !ok {
		return "", false
	}
	if c.now().After(entry.expiresAt) {
		c.mutex.Lock()
		if current, ok := c.entries[userID]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, userID)
		}
		c.mutex.Unlock()
		return "", false
	}
	return entry.tier, true
}

// Generation returns the current invalidation sequence.
func (c *MemoryPlanCache) Generation(_ context.Context, _ string) uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.seq
}

// Set stores tier unless userID was invalidated after generation was taken.
func (c *MemoryPlanCache) Set(_ context.Context, userID string, tier plans.Tier, generation uint64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if generation < c.floor || c.invalidated[userID] > generation {
		return false
	}
	if _, exists := c.entries[userID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[userID] = planCacheEntry{tier: tier, expiresAt: c.now().Add(c.ttl)}
	return true
}

func (c *MemoryPlanCache) Invalidate(_ context.Context, userID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, userID)
	c.seq++
	if len(c.invalidated) >= c.maxEntries {
		c.invalidated = make(map[string]uint64)
		c.floor = c.seq
	}
	c.invalidated[userID] = c.seq
}

// Len returns the number of cached users
func (c *MemoryPlanCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// evictLocked drops expired entries, then the entry closest to expiry if the
// cache is still full.
func (c *MemoryPlanCache) evictLocked() {
	now := c.now()
	for userID, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, userID)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var oldestUser string
	var oldest time.Time
	for userID, entry := range c.entries {
		if oldestUser == "" || entry.expiresAt.Before(oldest) {
			oldestUser, oldest = userID, entry.expiresAt
		}
	}
	delete(c.entries, oldestUser)
}
