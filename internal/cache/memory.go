package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	expiry time.Time
	value  []byte
}

// Memory is a thread-safe in-process cache. Expired entries are swept
// periodically until Close is called.
type Memory struct {
	entries map[string]memoryEntry
	stopCh  chan struct{}
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// NewMemory creates a cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Memory{
		entries: make(map[string]memoryEntry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
		ttl:     ttl,
	}
	go c.sweep(sweepInterval(ttl))
	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// Get returns a copy of the stored value.
func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiry) {
		return nil, ErrMiss
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores a copy of value.
func (c *Memory) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		value:  append([]byte(nil), value...),
		expiry: c.now().Add(c.ttl),
	}
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (c *Memory) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Memory) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

func (c *Memory) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Memory) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, key)
		}
	}
}
