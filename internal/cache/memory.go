package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryCache is a process-local cache. Values are stored as JSON so callers
// never share mutable state with the cache.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	now      func() time.Time
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache starts a sweeper that evicts expired entries every interval.
// A non-positive interval disables sweeping; expired entries are still never served.
func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries:  make(map[string]memoryEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	} else {
		close(c.doneChan)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expires) {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", key, err)
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// InvalidateAll swaps in an empty map
func (c *MemoryCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	dropped := len(c.entries)
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()

	zap.L().Debug("Read cache invalidated", zap.Int("dropped", dropped))
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopChan) })
	<-c.doneChan
	return nil
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	defer close(c.doneChan)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		zap.L().Debug("Swept expired cache entries", zap.Int("removed", removed))
	}
}
