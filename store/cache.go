package store

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/patrickmn/go-cache"
)

// Cached wraps a Store and keeps recently read documents in memory. Every
// write through the wrapper evicts the cached copy, as does a lost
// compare-and-swap so that the retry reads the fresh version. Only use it when
// this process is the sole writer of the underlying store.
type Cached struct {
	Store
	cache *cache.Cache
}

var _ Store = (*Cached)(nil)

// NewCached returns a caching wrapper around s that keeps documents for ttl.
func NewCached(s Store, ttl time.Duration) *Cached {
	return &Cached{
		Store: s,
		cache: cache.New(ttl, 2*ttl),
	}
}

func cacheKey(collection, key string) string {
	return collection + "/" + key
}

func (c *Cached) Get(ctx context.Context, collection, key string) (*Document, error) {
	k := cacheKey(collection, key)
	if v, ok := c.cache.Get(k); ok {
		return copyDocument(v.(*Document)), nil
	}
	d, err := c.Store.Get(ctx, collection, key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(k, copyDocument(d), cache.DefaultExpiration)
	return d, nil
}

func (c *Cached) Set(ctx context.Context, collection, key string, data []byte) error {
	defer c.cache.Delete(cacheKey(collection, key))
	return c.Store.Set(ctx, collection, key, data)
}

func (c *Cached) Update(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	defer c.cache.Delete(cacheKey(collection, key))
	return c.Store.Update(ctx, collection, key, fields)
}

func (c *Cached) CompareAndSwap(ctx context.Context, collection, key string, version int64, data []byte) (int64, error) {
	k := cacheKey(collection, key)
	v, err := c.Store.CompareAndSwap(ctx, collection, key, version, data)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			c.cache.Delete(k)
		}
		return 0, err
	}
	c.cache.Set(k, &Document{
		Collection: collection,
		Key:        key,
		Data:       append([]byte(nil), data...),
		Version:    v,
	}, cache.DefaultExpiration)
	return v, nil
}

// Flush drops every cached document.
func (c *Cached) Flush() {
	c.cache.Flush()
}
