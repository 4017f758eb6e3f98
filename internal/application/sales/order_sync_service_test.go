package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/domain/sales"
	"github.com/shelfwise/backend/internal/domain/storefront"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeStorefront struct {
	mu       sync.Mutex
	pages    []*storefront.OrderPage
	requests []storefront.OrderPullRequest
	err      error
	countErr error
	block    chan struct{} // when set, PullOrders waits for a signal
}

func (f *fakeStorefront) PullOrders(ctx context.Context, req *storefront.OrderPullRequest) (*storefront.OrderPage, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, *req)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.pages) {
		return &storefront.OrderPage{}, nil
	}
	return f.pages[idx], nil
}

func (f *fakeStorefront) CountOrders(context.Context, storefront.Credentials, time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	total := 0
	for _, p := range f.pages {
		total += len(p.Orders)
	}
	return total, nil
}

func (f *fakeStorefront) GetVariants(context.Context, storefront.Credentials, []string) ([]storefront.PlatformVariant, error) {
	return nil, nil
}

type fakeOrderRepo struct {
	mu          sync.Mutex
	orders      map[string]*sales.Order
	items       int
	maxPlacedAt time.Time
	upsertErr   error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*sales.Order)}
}

func (f *fakeOrderRepo) UpsertOrder(_ context.Context, order *sales.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.orders[order.PlatformOrderID] = order
	return nil
}

func (f *fakeOrderRepo) UpsertItems(_ context.Context, order *sales.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items += len(order.Items)
	return nil
}

func (f *fakeOrderRepo) MaxPlacedAt(context.Context) (time.Time, error) {
	return f.maxPlacedAt, nil
}

func (f *fakeOrderRepo) ReclassifyReturningCustomers(context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeOrderRepo) ListVariantKeys(context.Context) ([]string, error) { return nil, nil }
func (f *fakeOrderRepo) CountOrders(context.Context) (int64, error)       { return 0, nil }
func (f *fakeOrderRepo) CountItems(context.Context) (int64, error)        { return 0, nil }

type fakeLoyalty struct {
	flagged int64
	calls   int
}

func (f *fakeLoyalty) Reclassify(context.Context) (int64, error) {
	f.calls++
	return f.flagged, nil
}

type fakeRebuilder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRebuilder) RebuildAsync() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeRebuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func platformOrder(id string, placedAt time.Time, variantIDs ...string) storefront.PlatformOrder {
	po := storefront.PlatformOrder{
		PlatformOrderID: id,
		TotalAmount:     decimal.NewFromInt(50),
		Currency:        "USD",
		PlacedAt:        placedAt,
	}
	for i, vid := range variantIDs {
		po.Items = append(po.Items, storefront.PlatformOrderItem{
			VariantID: vid,
			Title:     "Item",
			Position:  i + 1,
			Quantity:  1,
			UnitPrice: decimal.NewFromInt(10),
		})
	}
	return po
}

func newService(platform *fakeStorefront, repo *fakeOrderRepo, loyalty *fakeLoyalty, rebuilder *fakeRebuilder, cfg OrderSyncConfig) *OrderSyncService {
	if cfg.Credentials.ShopDomain == "" {
		cfg.Credentials = storefront.Credentials{ShopDomain: "test.myshopify.com", AccessToken: "tok"}
	}
	// Avoid wrapping a nil *fakeRebuilder in the interface: a typed nil would
	// defeat the service's nil guard.
	var rb CorrelationRebuilder
	if rebuilder != nil {
		rb = rebuilder
	}
	return NewOrderSyncService(platform, repo, loyalty, rb, cfg, zap.NewNop())
}

// ---------------------------------------------------------------------------
// Window Computation
// ---------------------------------------------------------------------------

func TestComputeWindowEmptyDatabase(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newService(&fakeStorefront{}, repo, &fakeLoyalty{}, nil, OrderSyncConfig{})

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	window, err := svc.computeWindow(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*365*24*time.Hour), window)
}

func TestComputeWindowIncremental(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.maxPlacedAt = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	svc := newService(&fakeStorefront{}, repo, &fakeLoyalty{}, nil, OrderSyncConfig{})

	svc.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }

	window, err := svc.computeWindow(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, repo.maxPlacedAt.Add(-5*time.Minute), window)
}

func TestComputeWindowFullResync(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.maxPlacedAt = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	svc := newService(&fakeStorefront{}, repo, &fakeLoyalty{}, nil, OrderSyncConfig{})

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	window, err := svc.computeWindow(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*365*24*time.Hour), window,
		"full resync ignores persisted history")
}

func TestComputeWindowClampedToFloor(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.maxPlacedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(&fakeStorefront{}, repo, &fakeLoyalty{}, nil, OrderSyncConfig{})

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	window, err := svc.computeWindow(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-2*365*24*time.Hour), window,
		"window never reaches past the historical floor")
}

// ---------------------------------------------------------------------------
// Sync Pass
// ---------------------------------------------------------------------------

func TestSyncNowPaginates(t *testing.T) {
	now := time.Now()
	platform := &fakeStorefront{
		pages: []*storefront.OrderPage{
			{
				Orders: []storefront.PlatformOrder{
					platformOrder("ord-1", now, "v-1", "v-2"),
					platformOrder("ord-2", now, "v-1"),
				},
				NextCursor: "page-2",
			},
			{
				Orders: []storefront.PlatformOrder{
					platformOrder("ord-3", now, "v-3"),
				},
			},
		},
	}
	repo := newFakeOrderRepo()
	loyalty := &fakeLoyalty{flagged: 2}
	rebuilder := &fakeRebuilder{}

	svc := newService(platform, repo, loyalty, rebuilder, OrderSyncConfig{})
	result, err := svc.SyncNow(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.PagesFetched)
	assert.Equal(t, 3, result.OrdersSynced)
	assert.Equal(t, 4, result.ItemsSynced)
	assert.Equal(t, 0, result.OrdersSkipped)
	assert.Equal(t, int64(2), result.ReturningCustomers)

	// The second request continues from the returned cursor
	require.Len(t, platform.requests, 2)
	assert.Empty(t, platform.requests[0].Cursor)
	assert.Equal(t, "page-2", platform.requests[1].Cursor)

	assert.Equal(t, 1, loyalty.calls)
	assert.Equal(t, 1, rebuilder.count())

	status := svc.Status()
	assert.Equal(t, SyncStateCompleted, status.State)
	assert.False(t, status.IsProcessing)
	assert.Equal(t, 3, status.OrdersSynced)
	assert.Equal(t, SyncProgress{Processed: 3, Total: 3}, status.Progress)
	assert.NotNil(t, status.FinishedAt)
	assert.NotNil(t, status.LastCompletedAt)
	assert.Contains(t, status.LastResult, "3 orders")
}

func TestSyncNowCountFailureIsNotFatal(t *testing.T) {
	now := time.Now()
	platform := &fakeStorefront{
		pages: []*storefront.OrderPage{
			{Orders: []storefront.PlatformOrder{platformOrder("ord-1", now, "v-1")}},
		},
		countErr: errors.New("count endpoint down"),
	}
	svc := newService(platform, newFakeOrderRepo(), &fakeLoyalty{}, nil, OrderSyncConfig{})

	result, err := svc.SyncNow(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersSynced)

	// Progress degrades to processed-only when the window count is unknown
	status := svc.Status()
	assert.Equal(t, SyncProgress{Processed: 1, Total: 0}, status.Progress)
}

func TestSyncNowSkipsMalformedOrders(t *testing.T) {
	now := time.Now()
	bad := platformOrder("ord-bad", now, "v-1")
	bad.Items[0].Position = 0 // missing cart position

	platform := &fakeStorefront{
		pages: []*storefront.OrderPage{
			{Orders: []storefront.PlatformOrder{platformOrder("ord-1", now, "v-1"), bad}},
		},
	}
	repo := newFakeOrderRepo()

	svc := newService(platform, repo, &fakeLoyalty{}, nil, OrderSyncConfig{})
	result, err := svc.SyncNow(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.OrdersSynced)
	assert.Equal(t, 1, result.OrdersSkipped)
	assert.Contains(t, repo.orders, "ord-1")
	assert.NotContains(t, repo.orders, "ord-bad")
}

func TestSyncNowUpstreamFailure(t *testing.T) {
	platform := &fakeStorefront{err: storefront.ErrRateLimited}
	svc := newService(platform, newFakeOrderRepo(), &fakeLoyalty{}, nil, OrderSyncConfig{})

	_, err := svc.SyncNow(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storefront.ErrRateLimited))

	status := svc.Status()
	assert.Equal(t, SyncStateFailed, status.State)
	assert.NotEmpty(t, status.Error)
}

func TestStartSyncWithCredentialOverride(t *testing.T) {
	now := time.Now()
	platform := &fakeStorefront{
		pages: []*storefront.OrderPage{
			{Orders: []storefront.PlatformOrder{platformOrder("ord-1", now, "v-1")}},
		},
	}
	svc := newService(platform, newFakeOrderRepo(), &fakeLoyalty{}, nil, OrderSyncConfig{})

	override := storefront.Credentials{ShopDomain: "other.myshopify.com", AccessToken: "shpat_other"}
	require.NoError(t, svc.StartSyncWith(SyncOptions{Credentials: &override}))

	require.Eventually(t, func() bool {
		return svc.Status().State == SyncStateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	platform.mu.Lock()
	defer platform.mu.Unlock()
	require.NotEmpty(t, platform.requests)
	assert.Equal(t, override, platform.requests[0].Credentials)
}

func TestSingleFlight(t *testing.T) {
	release := make(chan struct{})
	platform := &fakeStorefront{block: release}
	svc := newService(platform, newFakeOrderRepo(), &fakeLoyalty{}, nil, OrderSyncConfig{})

	require.NoError(t, svc.StartSync(false))

	// While the first pass is blocked on the platform, further triggers
	// are rejected.
	assert.ErrorIs(t, svc.StartSync(false), ErrSyncInProgress)
	_, err := svc.SyncNow(context.Background(), false)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)

	require.Eventually(t, func() bool {
		return svc.Status().State == SyncStateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// The slot is free again
	_, err = svc.SyncNow(context.Background(), false)
	assert.NoError(t, err)
}

func TestStatusTrackerLifecycle(t *testing.T) {
	tracker := NewStatusTracker()
	idle := tracker.Snapshot()
	assert.Equal(t, SyncStateIdle, idle.State)
	assert.False(t, idle.IsProcessing)

	require.NoError(t, tracker.Begin())
	assert.ErrorIs(t, tracker.Begin(), ErrSyncInProgress)
	assert.True(t, tracker.Snapshot().IsProcessing)

	tracker.SetWindow(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 20)
	tracker.RecordPage(10, 25, 1)
	tracker.RecordPage(5, 8, 0)

	snap := tracker.Snapshot()
	assert.Equal(t, 2, snap.PagesFetched)
	assert.Equal(t, 15, snap.OrdersSynced)
	assert.Equal(t, 33, snap.ItemsSynced)
	assert.Equal(t, 1, snap.OrdersSkipped)
	assert.Equal(t, SyncProgress{Processed: 16, Total: 20}, snap.Progress)

	tracker.Complete(7)
	snap = tracker.Snapshot()
	assert.Equal(t, SyncStateCompleted, snap.State)
	assert.False(t, snap.IsProcessing)
	assert.Equal(t, int64(7), snap.ReturningCustomers)
	assert.NotNil(t, snap.LastCompletedAt)
	assert.Contains(t, snap.LastResult, "15 orders")

	// A new pass resets the counters but keeps the previous outcome visible
	require.NoError(t, tracker.Begin())
	snap = tracker.Snapshot()
	assert.Zero(t, snap.PagesFetched)
	assert.Zero(t, snap.Progress.Processed)
	assert.NotNil(t, snap.LastCompletedAt)
	assert.Contains(t, snap.LastResult, "15 orders")
}

func TestStatusTrackerRetainsFailureOutcome(t *testing.T) {
	tracker := NewStatusTracker()

	require.NoError(t, tracker.Begin())
	tracker.Complete(3)
	completedAt := tracker.Snapshot().LastCompletedAt

	require.NoError(t, tracker.Begin())
	tracker.Fail(errors.New("upstream gave up"))

	snap := tracker.Snapshot()
	assert.Equal(t, SyncStateFailed, snap.State)
	assert.Contains(t, snap.LastResult, "upstream gave up")
	// last_completed_at still points at the last successful pass
	assert.Equal(t, completedAt, snap.LastCompletedAt)

	// And both survive the start of the next pass
	require.NoError(t, tracker.Begin())
	snap = tracker.Snapshot()
	assert.Contains(t, snap.LastResult, "upstream gave up")
	assert.Equal(t, completedAt, snap.LastCompletedAt)
}
