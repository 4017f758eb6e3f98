// Package sales orchestrates the incremental order sync pipeline: window
// computation, paginated ingestion, loyalty reclassification and the
// follow-up correlation rebuild.
package sales

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/domain/sales"
	"github.com/shelfwise/backend/internal/domain/storefront"
)

// CorrelationRebuilder is the downstream hook fired after a successful sync
// pass. The rebuild runs detached from the sync pass and must not fail it.
type CorrelationRebuilder interface {
	RebuildAsync()
}

// LoyaltyClassifier recomputes the returning-customer flags after ingestion.
type LoyaltyClassifier interface {
	Reclassify(ctx context.Context) (int64, error)
}

// OrderSyncConfig holds the sync pipeline tuning.
type OrderSyncConfig struct {
	// Credentials identify the shop to pull from.
	Credentials storefront.Credentials
	// PageSize is the upstream page size.
	PageSize int
	// OverlapBuffer is subtracted from the newest persisted order timestamp
	// so records landing around the previous pass boundary are re-fetched.
	// Overlap is safe because ingestion is idempotent.
	OverlapBuffer time.Duration
	// FullResyncLookback is the historical floor for a forced full resync
	// and for the first pass on an empty database.
	FullResyncLookback time.Duration
	// InterPageDelay is the pause between consecutive page fetches.
	InterPageDelay time.Duration
	// JobTimeout bounds a detached sync pass.
	JobTimeout time.Duration
}

func (c *OrderSyncConfig) applyDefaults() {
	if c.PageSize == 0 {
		c.PageSize = 250
	}
	if c.OverlapBuffer == 0 {
		c.OverlapBuffer = 5 * time.Minute
	}
	if c.FullResyncLookback == 0 {
		c.FullResyncLookback = 2 * 365 * 24 * time.Hour
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = 15 * time.Minute
	}
}

// SyncOptions control one sync pass.
type SyncOptions struct {
	// FullResync forces the window down to the historical floor.
	FullResync bool
	// Credentials, when set, override the configured shop for this pass.
	Credentials *storefront.Credentials
}

// SyncResult summarizes one completed sync pass.
type SyncResult struct {
	WindowStart        time.Time
	PagesFetched       int
	OrdersSynced       int
	ItemsSynced        int
	OrdersSkipped      int
	ReturningCustomers int64
	Duration           time.Duration
}

// OrderSyncService runs the order sync pipeline.
type OrderSyncService struct {
	platform  storefront.Storefront
	orders    sales.OrderRepository
	loyalty   LoyaltyClassifier
	rebuilder CorrelationRebuilder
	tracker   *StatusTracker
	config    OrderSyncConfig
	logger    *zap.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewOrderSyncService creates a new OrderSyncService.
func NewOrderSyncService(
	platform storefront.Storefront,
	orders sales.OrderRepository,
	loyalty LoyaltyClassifier,
	rebuilder CorrelationRebuilder,
	config OrderSyncConfig,
	logger *zap.Logger,
) *OrderSyncService {
	config.applyDefaults()
	return &OrderSyncService{
		platform:  platform,
		orders:    orders,
		loyalty:   loyalty,
		rebuilder: rebuilder,
		tracker:   NewStatusTracker(),
		config:    config,
		logger:    logger.Named("order_sync"),
		now:       time.Now,
	}
}

// Status returns the current pipeline status snapshot.
func (s *OrderSyncService) Status() SyncStatus {
	return s.tracker.Snapshot()
}

// StartSync claims the single-flight slot and runs an incremental or full
// pass detached from the caller.
func (s *OrderSyncService) StartSync(fullResync bool) error {
	return s.StartSyncWith(SyncOptions{FullResync: fullResync})
}

// StartSyncWith is StartSync with per-pass options. Returns ErrSyncInProgress
// when a pass is already running.
func (s *OrderSyncService) StartSyncWith(opts SyncOptions) error {
	if err := s.tracker.Begin(); err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
		defer cancel()
		s.runClaimed(ctx, opts)
	}()

	return nil
}

// SyncNow runs one pass synchronously. Used by the scheduler, which wants
// the result and already runs on its own goroutine.
func (s *OrderSyncService) SyncNow(ctx context.Context, fullResync bool) (*SyncResult, error) {
	if err := s.tracker.Begin(); err != nil {
		return nil, err
	}
	return s.runClaimed(ctx, SyncOptions{FullResync: fullResync})
}

// runClaimed executes a pass that already holds the single-flight slot.
func (s *OrderSyncService) runClaimed(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	started := s.now()

	result, err := s.run(ctx, opts)
	if err != nil {
		s.tracker.Fail(err)
		s.logger.Error("Order sync failed", zap.Error(err))
		return nil, err
	}

	result.Duration = s.now().Sub(started)
	s.tracker.Complete(result.ReturningCustomers)
	s.logger.Info("Order sync completed",
		zap.Time("window_start", result.WindowStart),
		zap.Int("pages", result.PagesFetched),
		zap.Int("orders", result.OrdersSynced),
		zap.Int("items", result.ItemsSynced),
		zap.Int("skipped", result.OrdersSkipped),
		zap.Int64("returning_customers", result.ReturningCustomers),
		zap.Duration("duration", result.Duration),
	)

	// Correlations derive from the order data just written; rebuild detached
	// so a slow rebuild never blocks or fails the sync pass.
	if s.rebuilder != nil {
		s.rebuilder.RebuildAsync()
	}

	return result, nil
}

func (s *OrderSyncService) run(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	windowStart, err := s.computeWindow(ctx, opts.FullResync)
	if err != nil {
		return nil, err
	}

	creds := s.config.Credentials
	if opts.Credentials != nil {
		creds = *opts.Credentials
	}

	// The window total only feeds progress reporting; a failed count is not
	// worth failing the pass over.
	total, err := s.platform.CountOrders(ctx, creds, windowStart)
	if err != nil {
		s.logger.Warn("Failed to count orders in window", zap.Error(err))
		total = 0
	}
	s.tracker.SetWindow(windowStart, total)

	result := &SyncResult{WindowStart: windowStart}

	req := &storefront.OrderPullRequest{
		Credentials:  creds,
		UpdatedAtMin: windowStart,
		PageSize:     s.config.PageSize,
	}

	for {
		page, err := s.platform.PullOrders(ctx, req)
		if err != nil {
			return nil, err
		}

		orders, items, skipped := s.ingestPage(ctx, page)
		result.OrdersSynced += orders
		result.ItemsSynced += items
		result.OrdersSkipped += skipped
		result.PagesFetched++
		s.tracker.RecordPage(orders, items, skipped)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !page.HasMore() {
			break
		}
		req.Cursor = page.NextCursor

		if err := s.pause(ctx); err != nil {
			return nil, err
		}
	}

	flagged, err := s.loyalty.Reclassify(ctx)
	if err != nil {
		return nil, err
	}
	result.ReturningCustomers = flagged

	return result, nil
}

// computeWindow derives the fetch window lower bound. Incremental passes
// start just before the newest persisted order; an empty database or a
// forced full resync falls back to the historical floor.
func (s *OrderSyncService) computeWindow(ctx context.Context, fullResync bool) (time.Time, error) {
	floor := s.now().Add(-s.config.FullResyncLookback)
	if fullResync {
		return floor, nil
	}

	maxPlacedAt, err := s.orders.MaxPlacedAt(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if maxPlacedAt.IsZero() {
		return floor, nil
	}

	windowStart := maxPlacedAt.Add(-s.config.OverlapBuffer)
	if windowStart.Before(floor) {
		return floor, nil
	}
	return windowStart, nil
}

// ingestPage upserts one page of orders. A malformed record is skipped with
// a warning; a storage failure on one order is also counted as skipped so a
// single bad row cannot abort the pass.
func (s *OrderSyncService) ingestPage(ctx context.Context, page *storefront.OrderPage) (orders, items, skipped int) {
	for i := range page.Orders {
		po := &page.Orders[i]

		order, err := sales.NewOrderFromPlatform(po)
		if err != nil {
			if errors.Is(err, storefront.ErrMalformedRecord) {
				s.logger.Warn("Skipping malformed order",
					zap.String("platform_order_id", po.PlatformOrderID),
					zap.Error(err),
				)
				skipped++
				continue
			}
			skipped++
			continue
		}

		if err := s.orders.UpsertOrder(ctx, order); err != nil {
			s.logger.Error("Failed to upsert order",
				zap.String("platform_order_id", order.PlatformOrderID),
				zap.Error(err),
			)
			skipped++
			continue
		}
		if err := s.orders.UpsertItems(ctx, order); err != nil {
			s.logger.Error("Failed to upsert order items",
				zap.String("platform_order_id", order.PlatformOrderID),
				zap.Error(err),
			)
			skipped++
			continue
		}

		orders++
		items += len(order.Items)
	}
	return orders, items, skipped
}

// pause waits the inter-page delay, honoring cancellation.
func (s *OrderSyncService) pause(ctx context.Context) error {
	if s.config.InterPageDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.config.InterPageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
