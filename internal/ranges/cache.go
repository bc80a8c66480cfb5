package ranges

import (
	"context"
	"sync"
)

// Cache holds merged range views keyed by project id. Entries never expire
// on their own; every mutating call invalidates the affected project
// explicitly. Get returns a copy the caller owns, so cached state can
// never be corrupted through a returned view.
type Cache interface {
	Get(ctx context.Context, projectID string) (map[string]*Range, bool)
	Put(ctx context.Context, projectID string, view map[string]*Range)
	Invalidate(ctx context.Context, projectID string)
}

// MemoryCache is the default in-process cache backend.
type MemoryCache struct {
	mu    sync.Mutex
	views map[string]map[string]*Range
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{views: make(map[string]map[string]*Range)}
}

func (c *MemoryCache) Get(_ context.Context, projectID string) (map[string]*Range, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	view, ok := c.views[projectID]
	if !ok {
		return nil, false
	}
	return cloneView(view), true
}

func (c *MemoryCache) Put(_ context.Context, projectID string, view map[string]*Range) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[projectID] = cloneView(view)
}

func (c *MemoryCache) Invalidate(_ context.Context, projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, projectID)
}

func cloneView(view map[string]*Range) map[string]*Range {
	out := make(map[string]*Range, len(view))
	for id, r := range view {
		out[id] = r.Clone()
	}
	return out
}
