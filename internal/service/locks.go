package service

import (
	"sync"

	"github.com/boddenberg/sales-flow-bfa-go/internal/domain"
	"github.com/boddenberg/sales-flow-bfa-go/internal/port"
)

// keyedMutex serializes work per key. Entries are dropped once no goroutine
// holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// viewCache guards the pipeline cache with a generation per customer. A
// view built before an invalidation is never stored.
type viewCache struct {
	mu    sync.Mutex
	gens  map[string]uint64
	cache port.Cache[*domain.PipelineView]
}

func newViewCache(cache port.Cache[*domain.PipelineView]) *viewCache {
	return &viewCache{gens: make(map[string]uint64), cache: cache}
}

func (c *viewCache) get(customerID string) (*domain.PipelineView, bool) {
	return c.cache.Get(pipelineCacheKey(customerID))
}

// generation is read before loading; pass it back to setIfCurrent.
func (c *viewCache) generation(customerID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[customerID]
}

// setIfCurrent stores the view unless the customer was invalidated since gen.
func (c *viewCache) setIfCurrent(customerID string, gen uint64, v *domain.PipelineView) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[customerID] != gen {
		return false
	}
	c.cache.Set(pipelineCacheKey(customerID), v)
	return true
}

func (c *viewCache) invalidate(customerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[customerID]++
	c.cache.Delete(pipelineCacheKey(customerID))
}
