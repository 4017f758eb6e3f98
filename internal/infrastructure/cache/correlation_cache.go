// Package cache provides the read-side cache for the correlation snapshot.
// Deployments with Redis share one cache across instances; without Redis an
// in-memory cache serves a single instance.
package cache

import (
	"context"
	"time"

	"github.com/shelfwise/backend/internal/domain/analytics"
)

// CorrelationCache caches the ranked correlation read model.
//
// The cache is invalidated after every rebuild; a miss falls through to the
// repository. Staleness is additionally bounded by the configured TTL.
type CorrelationCache interface {
	// Get returns the cached edge list. The second result is false on a miss.
	Get(ctx context.Context) ([]analytics.CorrelationEdge, bool, error)

	// Set stores the edge list for ttl.
	Set(ctx context.Context, edges []analytics.CorrelationEdge, ttl time.Duration) error

	// Invalidate drops the cached entry.
	Invalidate(ctx context.Context) error
}
