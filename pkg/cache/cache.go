package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Options struct {
	TTL        time.Duration
	MaxEntries int
}

type MetricsHooks struct {
	OnHit   func(labels map[string]string)
	OnMiss  func(labels map[string]string)
	OnStore func(labels map[string]string)
	OnError func(labels map[string]string)
}

type entry struct {
	value     interface{}
	expiresAt time.Time
	lastUsed  time.Time
}

// Cache is an in-process TTL cache with singleflight loading. It sits in
// front of the durable content store so hot reads for the current period
// skip the database entirely.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*entry
	order   []string
	opts    Options
	metrics MetricsHooks
	sf      singleflight.Group
}

func New(opts Options, hooks MetricsHooks) *Cache {
	return &Cache{
		items:   make(map[string]*entry),
		order:   make([]string, 0, 128),
		opts:    opts,
		metrics: hooks,
	}
}

type Loader func(ctx context.Context, key string) (interface{}, bool, error)

type loadResult struct {
	val interface{}
	ok  bool
	err error
}

// Get returns the cached value for key, loading it through loader on a
// miss. Concurrent misses for the same key collapse to a single load.
func (c *Cache) Get(ctx context.Context, key string, loader Loader) (interface{}, bool, error) {
	now := time.Now()
	c.mu.RLock()
	if e, ok := c.items[key]; ok && now.Before(e.expiresAt) {
		e.lastUsed = now
		c.mu.RUnlock()
		if c.metrics.OnHit != nil {
			c.metrics.OnHit(map[string]string{"key": key})
		}
		return e.value, true, nil
	}
	c.mu.RUnlock()

	if c.metrics.OnMiss != nil {
		c.metrics.OnMiss(map[string]string{"key": key})
	}
	result, _, _ := c.sf.Do(key, func() (interface{}, error) {
		val, ok, err := loader(ctx, key)
		if ok && err == nil {
			c.Set(key, val, c.opts.TTL)
		} else if c.metrics.OnError != nil && err != nil {
			c.metrics.OnError(map[string]string{"key": key})
		}
		return loadResult{val: val, ok: ok, err: err}, nil
	})
	res := result.(loadResult)
	if !res.ok {
		return nil, false, res.err
	}
	return res.val, true, nil
}

func (c *Cache) Set(key string, val interface{}, ttl time.Duration) {
	now := time.Now()
	e := &entry{value: val, expiresAt: now.Add(ttl), lastUsed: now}
	c.mu.Lock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = e
	c.evictIfNeeded()
	c.mu.Unlock()
	if c.metrics.OnStore != nil {
		c.metrics.OnStore(map[string]string{"key": key})
	}
}

// Peek returns a cached value without triggering a load.
func (c *Cache) Peek(key string) (interface{}, bool) {
	now := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || now.After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.removeFromOrder(key)
	c.mu.Unlock()
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache) evictIfNeeded() {
	if c.opts.MaxEntries <= 0 || len(c.items) <= c.opts.MaxEntries {
		return
	}
	// Simple FIFO eviction
	excess := len(c.items) - c.opts.MaxEntries
	for excess > 0 && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
		excess--
	}
}
