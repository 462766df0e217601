package core

import (
	"context"
	"time"
)

// Cache is a concurrency-safe key-value store whose entries expire.
// A zero or negative ttl means the cache's default ttl.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	// InvalidatePrefix deletes every key starting with prefix and returns how many were removed.
	InvalidatePrefix(prefix string) int
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (interface{}, error)) (interface{}, error)
	Len() int
}

// CatalogCachePrefix prefixes every cached public catalog read.
// Any catalog mutation invalidates the whole prefix.
const CatalogCachePrefix = "tour:"
