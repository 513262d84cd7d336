package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider with per-key expiry. It suits a
// single console session where no shared Valkey is configured.
type MemoryProvider struct {
	mu   sync.Mutex
	data map[string]item
	now  func() time.Time
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]item), now: time.Now}
}

func (c *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if c.expired(it) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

func (c *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = c.newItem(value, ttl)
	return nil
}

func (c *MemoryProvider) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Close drops every entry.
func (c *MemoryProvider) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]item)
	return nil
}

func (c *MemoryProvider) newItem(value []byte, ttl time.Duration) item {
	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}
	return item{value: append([]byte(nil), value...), expiresAt: expires}
}

func (c *MemoryProvider) expired(it item) bool {
	return !it.expiresAt.IsZero() && !c.now().Before(it.expiresAt)
}
