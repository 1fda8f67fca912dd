package cache

import "time"

// LayeredCache reads through a fast layer to a slow one
type LayeredCache struct {
	fast Cache
	slow Cache
}

// NewLayeredCache combines two caches, usually memory over disk
func NewLayeredCache(fast, slow Cache) *LayeredCache {
	return &LayeredCache{fast: fast, slow: slow}
}

// Get checks the fast layer first and promotes slow-layer hits
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.fast.Get(key); found {
		return val, true
	}

	val, found := c.slow.Get(key)
	if !found {
		return nil, false
	}
	_ = c.fast.Set(key, val, 0)
	return val, true
}

// Set writes both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(key, value, ttl); err != nil {
		return err
	}
	return c.slow.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.fast.Delete(key)
	return c.slow.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.fast.Clear()
	return c.slow.Clear()
}
