// Package analytics defines the derived co-purchase correlation model and
// its repository port.
package analytics

import (
	"context"
	"errors"
	"time"
)

// ErrRebuildInProgress indicates a correlation rebuild is already running;
// at most one rebuild may be in flight.
var ErrRebuildInProgress = errors.New("analytics: correlation rebuild already in progress")

// CorrelationEdge is one unordered co-purchase pair.
//
// The pair is normalized so ProductA < ProductB; each pair is represented
// exactly once. Score is co_purchase_count divided by the number of orders
// containing ProductA (the lower-identifier member), an asymmetric
// support-style metric in [0,1].
type CorrelationEdge struct {
	ProductA        string
	ProductB        string
	CoPurchaseCount int64
	Score           float64
	ComputedAt      time.Time
}

// NormalizePair orders two variant keys so a < b.
func NormalizePair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// CorrelationRepository owns the correlation snapshot.
type CorrelationRepository interface {
	// Rebuild regenerates the full edge set from persisted line items
	// inside a single transaction (delete-then-rebuild), so readers never
	// observe an empty table mid-rebuild. Pairs must co-occur in at least
	// MinCoPurchases distinct orders to produce an edge. Returns the
	// number of edges written.
	Rebuild(ctx context.Context) (int64, error)

	// TopByCount returns edges ranked by co-purchase count, descending.
	TopByCount(ctx context.Context, limit int) ([]CorrelationEdge, error)
}

// MinCoPurchases is the minimum number of distinct shared orders for a pair
// to appear in the model. Bounds output size for low-traffic catalogs.
const MinCoPurchases = 2

// DefaultTopLimit is the default result size for ranked correlation reads.
const DefaultTopLimit = 100
