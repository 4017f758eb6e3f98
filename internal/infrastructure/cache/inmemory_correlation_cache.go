package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shelfwise/backend/internal/domain/analytics"
)

// InMemoryCorrelationCache implements CorrelationCache for single-instance
// deployments without Redis.
type InMemoryCorrelationCache struct {
	mu        sync.RWMutex
	edges     []analytics.CorrelationEdge
	populated bool
	expiresAt time.Time
}

// NewInMemoryCorrelationCache creates an empty in-memory cache.
func NewInMemoryCorrelationCache() *InMemoryCorrelationCache {
	return &InMemoryCorrelationCache{}
}

// Get returns the cached edge list, honoring expiry.
func (c *InMemoryCorrelationCache) Get(_ context.Context) ([]analytics.CorrelationEdge, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.populated || time.Now().After(c.expiresAt) {
		return nil, false, nil
	}

	edges := make([]analytics.CorrelationEdge, len(c.edges))
	copy(edges, c.edges)
	return edges, true, nil
}

// Set stores a copy of the edge list for ttl.
func (c *InMemoryCorrelationCache) Set(_ context.Context, edges []analytics.CorrelationEdge, ttl time.Duration) error {
	stored := make([]analytics.CorrelationEdge, len(edges))
	copy(stored, edges)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = stored
	c.populated = true
	c.expiresAt = time.Now().Add(ttl)
	return nil
}

// Invalidate drops the cached entry.
func (c *InMemoryCorrelationCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges = nil
	c.populated = false
	return nil
}

// Ensure InMemoryCorrelationCache implements CorrelationCache
var _ CorrelationCache = (*InMemoryCorrelationCache)(nil)
