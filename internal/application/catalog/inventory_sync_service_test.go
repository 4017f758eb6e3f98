package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/domain/catalog"
	"github.com/shelfwise/backend/internal/domain/sales"
	"github.com/shelfwise/backend/internal/domain/storefront"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeStorefront struct {
	variants map[string]storefront.PlatformVariant
	batches  [][]string
	err      error
	block    chan struct{}
}

func (f *fakeStorefront) PullOrders(context.Context, *storefront.OrderPullRequest) (*storefront.OrderPage, error) {
	return &storefront.OrderPage{}, nil
}

func (f *fakeStorefront) CountOrders(context.Context, storefront.Credentials, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeStorefront) GetVariants(ctx context.Context, _ storefront.Credentials, ids []string) ([]storefront.PlatformVariant, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, ids)
	var out []storefront.PlatformVariant
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	variantKeys []string
}

func (f *fakeOrderRepo) UpsertOrder(context.Context, *sales.Order) error   { return nil }
func (f *fakeOrderRepo) UpsertItems(context.Context, *sales.Order) error   { return nil }
func (f *fakeOrderRepo) MaxPlacedAt(context.Context) (time.Time, error)    { return time.Time{}, nil }
func (f *fakeOrderRepo) CountOrders(context.Context) (int64, error)        { return 0, nil }
func (f *fakeOrderRepo) CountItems(context.Context) (int64, error)         { return 0, nil }
func (f *fakeOrderRepo) ReclassifyReturningCustomers(context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeOrderRepo) ListVariantKeys(context.Context) ([]string, error) {
	return f.variantKeys, nil
}

type fakeVariantRepo struct {
	stored map[string]*catalog.Variant
}

func newFakeVariantRepo() *fakeVariantRepo {
	return &fakeVariantRepo{stored: make(map[string]*catalog.Variant)}
}

func (f *fakeVariantRepo) UpsertVariant(_ context.Context, v *catalog.Variant) error {
	f.stored[v.VariantID] = v
	return nil
}

func (f *fakeVariantRepo) ListVariantIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.stored))
	for id := range f.stored {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeVariantRepo) FindByID(_ context.Context, id string) (*catalog.Variant, error) {
	v, ok := f.stored[id]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func platformVariant(id string, vendor *string) storefront.PlatformVariant {
	return storefront.PlatformVariant{
		VariantID:         id,
		SKU:               "SKU-" + id,
		Title:             "Variant " + id,
		Price:             decimal.NewFromInt(20),
		InventoryQuantity: 5,
		Vendor:            vendor,
	}
}

func strPtr(s string) *string { return &s }

func TestSyncInventoryBatches(t *testing.T) {
	platform := &fakeStorefront{variants: map[string]storefront.PlatformVariant{}}
	orderRepo := &fakeOrderRepo{}
	for _, id := range []string{"v-1", "v-2", "v-3", "v-4", "v-5"} {
		orderRepo.variantKeys = append(orderRepo.variantKeys, id)
		platform.variants[id] = platformVariant(id, strPtr("Vendor"))
	}
	variantRepo := newFakeVariantRepo()

	svc := NewInventorySyncService(platform, orderRepo, variantRepo,
		InventorySyncConfig{BatchSize: 2}, zap.NewNop())

	result, err := svc.SyncInventory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, result.VariantsRequested)
	assert.Equal(t, 5, result.VariantsSynced)
	assert.Equal(t, 0, result.VariantsMissing)
	assert.Equal(t, 3, result.Batches)

	require.Len(t, platform.batches, 3)
	assert.Equal(t, []string{"v-1", "v-2"}, platform.batches[0])
	assert.Equal(t, []string{"v-5"}, platform.batches[2])

	assert.Len(t, variantRepo.stored, 5)
}

func TestSyncInventoryClearsMissingAttributes(t *testing.T) {
	platform := &fakeStorefront{variants: map[string]storefront.PlatformVariant{
		"v-1": platformVariant("v-1", nil),
	}}
	orderRepo := &fakeOrderRepo{variantKeys: []string{"v-1"}}
	variantRepo := newFakeVariantRepo()

	// The variant previously had a vendor
	require.NoError(t, variantRepo.UpsertVariant(context.Background(), &catalog.Variant{
		VariantID: "v-1",
		Vendor:    strPtr("Old Vendor"),
	}))

	svc := NewInventorySyncService(platform, orderRepo, variantRepo,
		InventorySyncConfig{}, zap.NewNop())

	_, err := svc.SyncInventory(context.Background())
	require.NoError(t, err)

	stored := variantRepo.stored["v-1"]
	require.NotNil(t, stored)
	assert.Nil(t, stored.Vendor, "absent upstream attribute clears the stored value")
}

func TestSyncInventoryCountsMissingVariants(t *testing.T) {
	platform := &fakeStorefront{variants: map[string]storefront.PlatformVariant{
		"v-1": platformVariant("v-1", nil),
	}}
	orderRepo := &fakeOrderRepo{variantKeys: []string{"v-1", "v-gone"}}
	variantRepo := newFakeVariantRepo()

	svc := NewInventorySyncService(platform, orderRepo, variantRepo,
		InventorySyncConfig{}, zap.NewNop())

	result, err := svc.SyncInventory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.VariantsSynced)
	assert.Equal(t, 1, result.VariantsMissing)
}

func TestSyncInventoryEmptyHistory(t *testing.T) {
	svc := NewInventorySyncService(&fakeStorefront{}, &fakeOrderRepo{}, newFakeVariantRepo(),
		InventorySyncConfig{}, zap.NewNop())

	result, err := svc.SyncInventory(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.VariantsRequested)
	assert.Zero(t, result.Batches)
}

func TestSyncInventoryPlatformFailure(t *testing.T) {
	platform := &fakeStorefront{err: errors.New("boom")}
	orderRepo := &fakeOrderRepo{variantKeys: []string{"v-1"}}

	svc := NewInventorySyncService(platform, orderRepo, newFakeVariantRepo(),
		InventorySyncConfig{}, zap.NewNop())

	_, err := svc.SyncInventory(context.Background())
	assert.Error(t, err)
	assert.Equal(t, InventoryStateFailed, svc.Status().State)
}

func TestSyncInventorySingleFlight(t *testing.T) {
	release := make(chan struct{})
	platform := &fakeStorefront{
		variants: map[string]storefront.PlatformVariant{"v-1": platformVariant("v-1", nil)},
		block:    release,
	}
	orderRepo := &fakeOrderRepo{variantKeys: []string{"v-1"}}

	svc := NewInventorySyncService(platform, orderRepo, newFakeVariantRepo(),
		InventorySyncConfig{}, zap.NewNop())

	require.NoError(t, svc.StartInventorySync())
	assert.Equal(t, InventoryStateRunning, svc.Status().State)

	err := svc.StartInventorySync()
	assert.ErrorIs(t, err, ErrInventorySyncInProgress)

	_, err = svc.SyncInventory(context.Background())
	assert.ErrorIs(t, err, ErrInventorySyncInProgress)

	close(release)
	require.Eventually(t, func() bool {
		return svc.Status().State == InventoryStateCompleted
	}, time.Second, 5*time.Millisecond)

	status := svc.Status()
	assert.Equal(t, 1, status.VariantsSynced)
	assert.NotNil(t, status.FinishedAt)
}
