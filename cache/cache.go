// Package cache keeps external book metadata in memory between enrichment
// batches. Model answers and plans are never stored here.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"bookdesk/models"
)

type Cache struct {
	items *gocache.Cache
}

// New returns a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{items: gocache.New(ttl, 2*ttl)}
}

// Key normalizes parts into a cache key.
func Key(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, ":")
}

// Book returns a copy of the cached record for key.
func (c *Cache) Book(key string) (models.BookRecord, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return models.BookRecord{}, false
	}
	rec, ok := v.(models.BookRecord)
	return rec, ok
}

func (c *Cache) PutBook(key string, rec models.BookRecord) {
	c.items.SetDefault(key, rec)
}

func (c *Cache) Len() int {
	return c.items.ItemCount()
}
