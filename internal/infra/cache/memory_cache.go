package cache

import (
	"context"
	"sync"

	"roastery/internal/domain/entity"
	"roastery/internal/domain/service"
)

// MemoryCache is the in-process read cache backing the public catalog
// endpoints. It holds the last decoded catalog until a publish flushes it.
type MemoryCache struct {
	mu       sync.RWMutex
	products []entity.Product
	valid    bool
}

// NewMemoryCache creates an empty in-process catalog cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Get returns the cached catalog and whether the cache is warm.
func (c *MemoryCache) Get() ([]entity.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return nil, false
	}

	return entity.CloneCatalog(c.products), true
}

// Set replaces the cached catalog.
func (c *MemoryCache) Set(products []entity.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = entity.CloneCatalog(products)
	c.valid = true
}

// Flush drops the cached catalog; the next read repopulates from the store.
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = nil
	c.valid = false
}

// memoryInvalidator exposes the cache flush as an Invalidator so the
// publish pipeline treats it like every other cache layer.
type memoryInvalidator struct {
	cache *MemoryCache
}

// NewMemoryInvalidator wraps the in-process cache as an Invalidator.
func NewMemoryInvalidator(cache *MemoryCache) service.Invalidator {
	return &memoryInvalidator{cache: cache}
}

func (i *memoryInvalidator) Name() string {
	return "memory"
}

func (i *memoryInvalidator) Invalidate(context.Context) error {
	i.cache.Flush()

	return nil
}
