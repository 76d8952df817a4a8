package cache

import (
	"sort"
	"sync"

	"postershelf/imaging"
)

// Cache maps a resource key (the URL it was fetched from) to its decoded
// image. Entries are written once and only go away on Clear.
type Cache struct {
	mu         sync.RWMutex
	images     map[string]*imaging.Image
	generation uint64
}

func New() *Cache {
	return &Cache{
		images: make(map[string]*imaging.Image),
	}
}

func (c *Cache) Get(key string) (*imaging.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[key]
	return img, ok
}

// InsertIfAbsent stores img under key unless the key is already present.
// It reports whether img was stored.
func (c *Cache) InsertIfAbsent(key string, img *imaging.Image) bool {
	if img == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertLocked(key, img)
}

// InsertIfAbsentAt is InsertIfAbsent for a write that was started while the
// cache was at generation gen. The write is dropped if Clear ran since.
func (c *Cache) InsertIfAbsentAt(gen uint64, key string, img *imaging.Image) bool {
	if img == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	return c.insertLocked(key, img)
}

func (c *Cache) insertLocked(key string, img *imaging.Image) bool {
	if _, exists := c.images[key]; exists {
		return false
	}
	c.images[key] = img
	return true
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = make(map[string]*imaging.Image)
	c.generation++
}

func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.images))
	for k := range c.images {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Bytes is the total size of the cached pixel buffers.
func (c *Cache) Bytes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, img := range c.images {
		total += img.Bytes()
	}
	return total
}
