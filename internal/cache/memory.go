package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process TTL cache with LRU eviction. The zero number of
// entries is unbounded-ish; maxEntries caps memory for long-lived
// processes.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
	stats      Stats
	now        func() time.Time
}

type memoryEntry struct {
	value    []byte
	expires  time.Time
	accessed time.Time
}

// NewMemory creates a memory cache holding at most maxEntries values.
func NewMemory(maxEntries int) *Memory {
	return &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// NewMemoryWithClock creates a memory cache with an injected clock so tests
// control expiry.
func NewMemoryWithClock(maxEntries int, now func() time.Time) *Memory {
	c := NewMemory(maxEntries)
	c.now = now
	return c
}

// Get retrieves a value if present and not expired.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false, nil
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		c.stats.Misses++
		return nil, false, nil
	}

	entry.accessed = c.now()
	c.stats.Hits++
	return entry.value, true, nil
}

// Set stores a value with the given TTL, evicting the least recently used
// entry when the cache is full.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	c.entries[key] = &memoryEntry{
		value:    value,
		expires:  c.now().Add(ttl),
		accessed: c.now(),
	}
	return nil
}

// Clear removes all entries and resets counters.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryEntry)
	c.stats = Stats{}
}

// Stats returns a snapshot of the cache counters.
func (c *Memory) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := c.stats
	out.Entries = int64(len(c.entries))
	return out
}

// evictLRU removes the least recently accessed entry. Caller holds the
// write lock.
func (c *Memory) evictLRU() {
	var oldestKey string
	oldest := c.now()

	for key, entry := range c.entries {
		if entry.accessed.Before(oldest) || oldestKey == "" {
			oldest = entry.accessed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}
