package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/NanzeRT/queues-demo/pkg/log"
)

// DefaultSize is the payload cache capacity used when none is configured.
const DefaultSize = 1024

// Fetcher loads a payload from its origin on a cache miss.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key string) (string, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, key string) (string, error) {
	return f(ctx, key)
}

// Cache is a bounded read-through LRU over a Fetcher. Concurrent misses on
// the same key are coalesced into a single origin fetch; errors are returned
// to every coalesced caller and never cached.
type Cache struct {
	entries *lru.Cache[string, string]
	group   singleflight.Group
	fetcher Fetcher
	logger  log.Logger
}

// New creates a Cache holding at most size payloads.
func New(size int, fetcher Fetcher, logger log.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = log.NewLogger()
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{
		entries: entries,
		fetcher: fetcher,
		logger:  logger.With(log.Component("cache")),
	}, nil
}

// Get returns the payload for key, fetching it on a miss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if val, ok := c.entries.Get(key); ok {
		return val, nil
	}
	val, err, shared := c.group.Do(key, func() (interface{}, error) {
		// A coalesced sibling may have populated the entry while we
		// waited on the flight group.
		if val, ok := c.entries.Get(key); ok {
			return val, nil
		}
		fetched, err := c.fetcher.Fetch(ctx, key)
		if err != nil {
			return "", err
		}
		c.entries.Add(key, fetched)
		return fetched, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("coalesced payload fetch", log.Str("key", key))
	}
	return val.(string), nil
}

// Len reports how many payloads are cached.
func (c *Cache) Len() int { return c.entries.Len() }
