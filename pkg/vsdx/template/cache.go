package template

import (
	"container/list"
	"encoding/hex"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// CacheConfig contains configuration options for the template cache
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
}

// Cache keeps compiled templates keyed by a hash of their source
type Cache struct {
	mu     sync.Mutex
	cache  map[string]*cacheEntry
	lru    *list.List
	config CacheConfig
}

type cacheEntry struct {
	key      string
	template *Template
	expiry   time.Time
	element  *list.Element
}

// NewCache creates a cache with the given configuration
func NewCache(config CacheConfig) *Cache {
	return &Cache{
		cache:  make(map[string]*cacheEntry),
		lru:    list.New(),
		config: config,
	}
}

var (
	defaultCacheMu sync.RWMutex
	defaultCache   = NewCache(CacheConfig{MaxSize: 100})
)

// DefaultCache returns the process-wide template cache
func DefaultCache() *Cache {
	defaultCacheMu.RLock()
	defer defaultCacheMu.RUnlock()
	return defaultCache
}

// ConfigureDefaultCache replaces the process-wide cache with an empty one
// using config.
func ConfigureDefaultCache(config CacheConfig) {
	defaultCacheMu.Lock()
	defer defaultCacheMu.Unlock()
	defaultCache = NewCache(config)
}

// CacheKey derives the cache key of a template source
func CacheKey(src string) string {
	sum := blake3.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Compile returns the cached template for src, compiling and storing it on
// a miss. Compilation errors are not cached.
func (c *Cache) Compile(src string) (*Template, error) {
	if c.config.MaxSize <= 0 {
		return Compile(src)
	}

	key := CacheKey(src)
	if tmpl, ok := c.Get(key); ok {
		return tmpl, nil
	}

	tmpl, err := Compile(src)
	if err != nil {
		return nil, err
	}
	c.Set(key, tmpl)
	return tmpl, nil
}

// Get retrieves a template from cache
func (c *Cache) Get(key string) (*Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.cache[key]
	if !exists {
		return nil, false
	}

	if c.config.TTL > 0 && time.Now().After(entry.expiry) {
		c.removeLocked(entry)
		return nil, false
	}

	c.lru.MoveToFront(entry.element)
	return entry.template, true
}

// Set adds a template to the cache, evicting the least recently used entry
// when full.
func (c *Cache) Set(key string, tmpl *Template) {
	if c.config.MaxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expiry time.Time
	if c.config.TTL > 0 {
		expiry = time.Now().Add(c.config.TTL)
	}

	if existing, exists := c.cache[key]; exists {
		existing.template = tmpl
		existing.expiry = expiry
		c.lru.MoveToFront(existing.element)
		return
	}

	if c.lru.Len() >= c.config.MaxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*cacheEntry))
		}
	}

	entry := &cacheEntry{
		key:      key,
		template: tmpl,
		expiry:   expiry,
	}
	entry.element = c.lru.PushFront(entry)
	c.cache[key] = entry
}

// Remove drops a template from the cache
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.cache[key]; exists {
		c.removeLocked(entry)
	}
}

func (c *Cache) removeLocked(entry *cacheEntry) {
	delete(c.cache, entry.key)
	c.lru.Remove(entry.element)
}

// Clear removes all templates from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*cacheEntry)
	c.lru = list.New()
}

// Size returns the current number of cached templates
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
