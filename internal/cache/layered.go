package cache

import "time"

// LayeredCache reads through a fast layer to a slow one and writes both.
type LayeredCache struct {
	fast Cache
	slow Cache
}

// NewLayeredCache combines an in-memory layer with a disk layer under diskDir.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewLayers(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
}

// NewLayers combines two arbitrary caches.
func NewLayers(fast, slow Cache) *LayeredCache {
	return &LayeredCache{fast: fast, slow: slow}
}

// Get checks the fast layer first. A slow-layer hit is promoted with the fast
// layer's default ttl.
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.fast.Get(key); ok {
		return val, true
	}
	val, ok := c.slow.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.fast.Set(key, val, 0)
	return val, true
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.fast.Set(key, value, ttl); err != nil {
		return err
	}
	return c.slow.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	if err := c.fast.Delete(key); err != nil {
		return err
	}
	return c.slow.Delete(key)
}

func (c *LayeredCache) Clear() error {
	if err := c.fast.Clear(); err != nil {
		return err
	}
	return c.slow.Clear()
}
