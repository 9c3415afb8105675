package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/Ramsey-B/briar/pkg/models"
)

// Source loads one tenant's catalog attributes from storage.
type Source interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.Attribute, error)
}

// Cache caches built catalog indexes per tenant. The catalog is read-mostly
// and curated slowly, so a short TTL keeps the resolver off the database on
// every payload key; admin writes invalidate their tenant eagerly.
type Cache struct {
	source  Source
	aliases *AliasTable
	ttl     time.Duration
	maxSize int

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    int64
	misses  int64
}

type cacheEntry struct {
	index     *Index
	expiresAt time.Time
}

// CacheConfig configures the catalog cache.
type CacheConfig struct {
	TTL     time.Duration
	MaxSize int
}

// DefaultCacheConfig returns sensible defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:     5 * time.Minute,
		MaxSize: 100,
	}
}

// NewCache creates a catalog cache over the given source.
func NewCache(source Source, aliases *AliasTable, config CacheConfig) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultCacheConfig().TTL
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultCacheConfig().MaxSize
	}
	return &Cache{
		source:  source,
		aliases: aliases,
		ttl:     config.TTL,
		maxSize: config.MaxSize,
		entries: make(map[string]*cacheEntry),
	}
}

// GetIndex returns the catalog index for a tenant, loading and building it
// on a cache miss.
func (c *Cache) GetIndex(ctx context.Context, tenantID string) (*Index, error) {
	c.mu.RLock()
	entry, exists := c.entries[tenantID]
	c.mu.RUnlock()

	if exists && time.Now().Before(entry.expiresAt) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.index, nil
	}

	attributes, err := c.source.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	index := NewIndex(attributes, c.aliases)

	c.mu.Lock()
	c.misses++
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[tenantID] = &cacheEntry{
		index:     index,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()

	return index, nil
}

// Invalidate drops the cached index for a tenant. Called after catalog
// writes so admins see their edits without waiting out the TTL.
func (c *Cache) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}

// Stats returns cache hit/miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// evictOldest removes the entry closest to expiry. Caller holds the lock.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
