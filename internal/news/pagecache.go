package news

import (
	"context"
	"sync"
	"time"

	"sentiment-trader/internal/types"
)

// PageCache holds scraped pages for one run. A new run starts with a new
// cache, so a later run in the same window always sees fresh rows.
type PageCache struct {
	mu    sync.Mutex
	pages map[pageKey][]types.Headline
}

type pageKey struct {
	ticker string
	window time.Time
}

func NewPageCache() *PageCache {
	return &PageCache{pages: make(map[pageKey][]types.Headline)}
}

func (c *PageCache) get(ticker string, window time.Time) ([]types.Headline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.pages[pageKey{ticker, window.UTC()}]
	return h, ok
}

func (c *PageCache) put(ticker string, window time.Time, headlines []types.Headline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[pageKey{ticker, window.UTC()}] = headlines
}

type pageCacheKey struct{}

// WithPageCache attaches c to ctx for the duration of a run.
func WithPageCache(ctx context.Context, c *PageCache) context.Context {
	return context.WithValue(ctx, pageCacheKey{}, c)
}

// PageCacheFrom returns the run's cache, or nil outside a run.
func PageCacheFrom(ctx context.Context) *PageCache {
	c, _ := ctx.Value(pageCacheKey{}).(*PageCache)
	return c
}
