package cachesvc

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vistavoyage/voyage/core"
)

var nowFunc = time.Now // mockable

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is an in-process TTL cache.
// Expired entries are dropped lazily on read and eagerly by a janitor goroutine.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]entry
	defaultTTL time.Duration
	loads      singleflight.Group

	stop     chan struct{}
	stopOnce sync.Once
}

var _ core.Cache = (*Cache)(nil) // interface compliance check

// New returns a Cache whose janitor runs every cleanupInterval. A non-positive interval disables the janitor.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	c := &Cache{
		items:      make(map[string]entry),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the janitor. The cache stays usable.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expired(nowFunc()) {
		c.mu.Lock()
		// re-check: it may have been overwritten meanwhile
		if e, ok = c.items[key]; ok && e.expired(nowFunc()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.items[key] = entry{value: value, expiresAt: nowFunc().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// DeleteExpired removes all expired entries.
func (c *Cache) DeleteExpired() {
	now := nowFunc()
	c.mu.Lock()
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
}

// Len counts entries, including expired ones the janitor has not collected yet.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Flush() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

// GetOrLoad returns the cached value of key, or calls load once for all concurrent callers and caches its result.
// Errors are not cached.
func (c *Cache) GetOrLoad(
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (interface{}, error),
) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.loads.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.SetWithTTL(key, v, ttl)
		return v, nil
	})
	return v, err
}
