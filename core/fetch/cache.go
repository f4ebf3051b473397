package fetch

import (
	"context"
	"time"

	"github.com/gaurav-prasanna/deckpipe/core"
	"github.com/patrickmn/go-cache"
)

// CachedFetcher keeps successful responses for a while so repeated
// analyses of the same resources do not refetch them. Failures are never
// cached.
type CachedFetcher struct {
	next  core.Fetcher
	store *cache.Cache
}

// NewCached wraps next with a cache holding responses for ttl.
func NewCached(next core.Fetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, store: cache.New(ttl, 2*ttl)}
}

func (c *CachedFetcher) Fetch(ctx context.Context, rawURL string) (*core.FetchResult, error) {
	key := NormalizeURL(rawURL)
	if v, ok := c.store.Get(key); ok {
		return v.(*core.FetchResult), nil
	}

	result, err := c.next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(key, result)
	return result, nil
}
