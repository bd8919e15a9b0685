package stac

import (
	"sync"
	"time"
)

// DateCache stores acquisition date lists by query key.
type DateCache interface {
	Get(key string) ([]string, bool)
	Put(key string, dates []string)
}

type cacheEntry struct {
	dates     []string
	expiresAt time.Time
}

// MemoryDateCache implements DateCache in memory with a TTL. It suits a
// single instance; replicas each keep their own entries.
type MemoryDateCache struct {
	mu       sync.RWMutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryDateCache creates a cache whose entries live for ttl.
// cleanupInterval sets how often expired entries are purged; zero disables
// the background purge.
func NewMemoryDateCache(ttl, cleanupInterval time.Duration) *MemoryDateCache {
	c := &MemoryDateCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}

	return c
}

// Get returns the dates stored under key unless they expired.
func (c *MemoryDateCache) Get(key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return append([]string(nil), entry.dates...), true
}

// Put stores dates under key.
func (c *MemoryDateCache) Put(key string, dates []string) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		dates:     append([]string(nil), dates...),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Stop stops the background cleanup goroutine.
func (c *MemoryDateCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *MemoryDateCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopChan:
			return
		}
	}
}

// cleanup removes all expired entries.
func (c *MemoryDateCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Stats returns the number of entries and the age of the oldest one.
func (c *MemoryDateCache) Stats() (count int, oldestAge time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count = len(c.entries)
	if count == 0 {
		return 0, 0
	}

	var oldest time.Time
	for _, entry := range c.entries {
		created := entry.expiresAt.Add(-c.ttl)
		if oldest.IsZero() || created.Before(oldest) {
			oldest = created
		}
	}

	return count, c.now().Sub(oldest)
}
