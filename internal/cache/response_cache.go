// internal/cache/response_cache.go
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"niche-finder/internal/common/http"
	"niche-finder/internal/common/logger"
	"niche-finder/internal/common/metrics"
)

const DefaultTTL = time.Hour

// ResponseCache memoizes Fetcher results by exact URL. Failed fetches are
// never stored. Concurrent misses for one URL share a single fetch.
type ResponseCache struct {
	fetcher http.Fetcher
	store   Store
	ttl     time.Duration
	logger  logger.Logger
	group   singleflight.Group
}

type Option func(*ResponseCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *ResponseCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithStore(s Store) Option {
	return func(c *ResponseCache) { c.store = s }
}

func New(fetcher http.Fetcher, log logger.Logger, opts ...Option) *ResponseCache {
	c := &ResponseCache{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	return c
}

// FetchCached returns the stored body for url when present and unexpired,
// otherwise fetches, stores and returns it.
func (c *ResponseCache) FetchCached(ctx context.Context, url string) ([]byte, error) {
	if body, ok := c.lookup(ctx, url); ok {
		metrics.CacheHits.Inc()
		return body, nil
	}

	v, err, _ := c.group.Do(url, func() (interface{}, error) {
		// Another caller may have filled it while we waited.
		if body, ok := c.lookup(ctx, url); ok {
			metrics.CacheHits.Inc()
			return body, nil
		}

		metrics.CacheMisses.Inc()
		body, err := c.fetcher.FetchJSON(ctx, url)
		if err != nil {
			return nil, err
		}

		if err := c.store.Set(ctx, url, body, c.ttl); err != nil {
			metrics.CacheStoreErrors.WithLabelValues("set").Inc()
			c.logger.Warn("Response cache write failed", map[string]interface{}{
				"url":   http.RedactURL(url),
				"error": err.Error(),
			})
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *ResponseCache) lookup(ctx context.Context, url string) ([]byte, bool) {
	body, ok, err := c.store.Get(ctx, url)
	if err != nil {
		metrics.CacheStoreErrors.WithLabelValues("get").Inc()
		c.logger.Warn("Response cache read failed", map[string]interface{}{
			"url":   http.RedactURL(url),
			"error": err.Error(),
		})
		return nil, false
	}
	return body, ok
}
