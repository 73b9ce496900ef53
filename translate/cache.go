package translate

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HashText returns the cache hash for a source text. FNV-1a is enough
// here: the hash only has to separate texts within practical batch sizes,
// it is not a security boundary.
func HashText(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Store is the optional durable cache tier consulted on in-memory misses.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached translation and whether it was found and
	// still fresh.
	Get(ctx context.Context, sourceLang, targetLang, hash string) (string, bool, error)
	// Put stores a translation. The source text is kept alongside the
	// hash for inspection.
	Put(ctx context.Context, sourceLang, targetLang, hash, sourceText, translation string) error
}

type cacheKey struct {
	src, tgt, hash string
}

type cacheEntry struct {
	translation string
	createdAt   time.Time
}

// Cache is the two-tier translation cache: an in-process map checked
// first, then the optional durable Store, which repopulates the in-process
// tier on hit. Expired entries count as misses; overflowing the capacity
// evicts the oldest-inserted entry.
type Cache struct {
	mu       sync.Mutex
	entries  map[cacheKey]cacheEntry
	order    []cacheKey
	ttl      time.Duration
	capacity int
	store    Store

	hits, misses int64
	now          func() time.Time
}

// NewCache returns a Cache with the given entry capacity and TTL. store
// may be nil for a memory-only cache.
func NewCache(capacity int, ttl time.Duration, store Store) *Cache {
	return &Cache{
		entries:  make(map[cacheKey]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		store:    store,
		now:      time.Now,
	}
}

// Get returns the cached translation for (sourceLang, targetLang, text).
func (c *Cache) Get(ctx context.Context, sourceLang, targetLang, text string) (string, bool) {
	key := cacheKey{sourceLang, targetLang, HashText(text)}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.ttl <= 0 || c.now().Sub(e.createdAt) < c.ttl {
			c.hits++
			c.mu.Unlock()
			return e.translation, true
		}
		c.removeLocked(key) // expired
	}
	c.mu.Unlock()

	if c.store != nil {
		translation, ok, err := c.store.Get(ctx, sourceLang, targetLang, key.hash)
		if err != nil {
			logrus.WithError(err).Debug("durable cache read failed")
		} else if ok {
			c.mu.Lock()
			c.insertLocked(key, translation)
			c.hits++
			c.mu.Unlock()
			return translation, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return "", false
}

// Put stores a translation in both tiers. Durable-tier write failures
// are logged and swallowed; a cache write must not fail a translation.
func (c *Cache) Put(ctx context.Context, sourceLang, targetLang, text, translation string) {
	key := cacheKey{sourceLang, targetLang, HashText(text)}

	c.mu.Lock()
	c.insertLocked(key, translation)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Put(ctx, sourceLang, targetLang, key.hash, text, translation); err != nil {
			logrus.WithError(err).Debug("durable cache write failed")
		}
	}
}

// HitRate returns hits/(hits+misses) for the run summary, 0 when unused.
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

func (c *Cache) insertLocked(key cacheKey, translation string) {
	if _, exists := c.entries[key]; !exists {
		for c.capacity > 0 && len(c.entries) >= c.capacity && len(c.order) > 0 {
			c.removeLocked(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{translation: translation, createdAt: c.now()}
}

func (c *Cache) removeLocked(key cacheKey) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
