// Package cache provides verdict cache implementations keyed by content
// fingerprint.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// MemoryCache keeps verdict summaries in process memory. Entries expire
// on their own; Cleanup is a no-op beyond what the underlying store
// already does.
type MemoryCache struct {
	store  *gocache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewMemoryCache creates an in-memory cache with the given default TTL
// and janitor interval.
func NewMemoryCache(ttl, cleanupInterval time.Duration, logger *zap.Logger) *MemoryCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	return &MemoryCache{
		store:  gocache.New(ttl, cleanupInterval),
		ttl:    ttl,
		logger: logger,
	}
}

func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	v, found := c.store.Get(fingerprint)
	if !found {
		return nil, nil
	}
	entry, ok := v.(*core.CacheEntry)
	if !ok {
		return nil, nil
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		c.store.Delete(fingerprint)
		return nil, nil
	}
	return entry, nil
}

func (c *MemoryCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := c.ttl
	if !entry.ExpiresAt.IsZero() {
		until := time.Until(entry.ExpiresAt)
		if until <= 0 {
			// Already expired, nothing to store.
			return nil
		}
		ttl = until
	}
	c.store.Set(entry.Fingerprint, entry, ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, fingerprint string) error {
	c.store.Delete(fingerprint)
	return nil
}

func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.store.DeleteExpired()
	return nil
}

func (c *MemoryCache) Close() error {
	c.store.Flush()
	return nil
}

var _ core.VerdictCache = (*MemoryCache)(nil)
