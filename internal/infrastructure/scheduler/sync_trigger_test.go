package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appcatalog "github.com/shelfwise/backend/internal/application/catalog"
	appsales "github.com/shelfwise/backend/internal/application/sales"
)

type fakeOrderRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeOrderRunner) SyncNow(context.Context, bool) (*appsales.SyncResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &appsales.SyncResult{}, nil
}

type fakeInventoryRunner struct {
	calls atomic.Int32
}

func (f *fakeInventoryRunner) SyncInventory(context.Context) (*appcatalog.InventorySyncResult, error) {
	f.calls.Add(1)
	return &appcatalog.InventorySyncResult{}, nil
}

func TestTriggerFiresBothLoops(t *testing.T) {
	orders := &fakeOrderRunner{}
	inventory := &fakeInventoryRunner{}

	trigger := NewSyncTrigger(SyncTriggerConfig{
		OrderInterval:     10 * time.Millisecond,
		InventoryInterval: 10 * time.Millisecond,
		JobTimeout:        time.Second,
	}, orders, inventory, zap.NewNop())

	trigger.Start(context.Background())
	defer trigger.Stop()

	require.Eventually(t, func() bool {
		return orders.calls.Load() >= 2 && inventory.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTriggerStopHaltsLoops(t *testing.T) {
	orders := &fakeOrderRunner{}
	inventory := &fakeInventoryRunner{}

	trigger := NewSyncTrigger(SyncTriggerConfig{
		OrderInterval:     5 * time.Millisecond,
		InventoryInterval: 5 * time.Millisecond,
	}, orders, inventory, zap.NewNop())

	trigger.Start(context.Background())
	require.Eventually(t, func() bool {
		return orders.calls.Load() >= 1
	}, time.Second, time.Millisecond)

	trigger.Stop()
	after := orders.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, orders.calls.Load(), "no passes fire after Stop")
}

func TestTriggerToleratesInProgress(t *testing.T) {
	orders := &fakeOrderRunner{err: appsales.ErrSyncInProgress}
	inventory := &fakeInventoryRunner{}

	trigger := NewSyncTrigger(SyncTriggerConfig{
		OrderInterval:     5 * time.Millisecond,
		InventoryInterval: time.Hour,
	}, orders, inventory, zap.NewNop())

	trigger.Start(context.Background())
	defer trigger.Stop()

	require.Eventually(t, func() bool {
		return orders.calls.Load() >= 3
	}, time.Second, time.Millisecond, "the loop keeps ticking through busy passes")
}

func TestTriggerStartIdempotent(t *testing.T) {
	orders := &fakeOrderRunner{}
	trigger := NewSyncTrigger(SyncTriggerConfig{
		OrderInterval:     time.Hour,
		InventoryInterval: time.Hour,
	}, orders, &fakeInventoryRunner{}, zap.NewNop())

	trigger.Start(context.Background())
	trigger.Start(context.Background())
	trigger.Stop()
	trigger.Stop()
}
