package llm

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// availabilityCache remembers probe results per backend key for a TTL so
// that a dashboard load does not probe the backend every time.
type availabilityCache struct {
	lru *expirable.LRU[string, bool]
}

func newAvailabilityCache(ttl time.Duration) *availabilityCache {
	return &availabilityCache{lru: expirable.NewLRU[string, bool](16, nil, ttl)}
}

func (c *availabilityCache) check(ctx context.Context, key string, probe func(context.Context) bool) bool {
	if ok, hit := c.lru.Get(key); hit {
		return ok
	}
	ok := probe(ctx)
	c.lru.Add(key, ok)
	return ok
}

func (c *availabilityCache) forget(key string) {
	c.lru.Remove(key)
}
