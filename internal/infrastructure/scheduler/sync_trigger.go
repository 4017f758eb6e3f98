// Package scheduler runs the periodic sync triggers. Both pipelines are also
// triggerable over HTTP; the scheduler only provides the steady cadence.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appcatalog "github.com/shelfwise/backend/internal/application/catalog"
	appsales "github.com/shelfwise/backend/internal/application/sales"
)

// OrderSyncRunner runs one synchronous order sync pass.
type OrderSyncRunner interface {
	SyncNow(ctx context.Context, fullResync bool) (*appsales.SyncResult, error)
}

// InventorySyncRunner runs one synchronous inventory pass.
type InventorySyncRunner interface {
	SyncInventory(ctx context.Context) (*appcatalog.InventorySyncResult, error)
}

// SyncTriggerConfig holds the trigger cadence.
type SyncTriggerConfig struct {
	// OrderInterval is the pause between order sync passes.
	OrderInterval time.Duration
	// InventoryInterval is the pause between inventory passes.
	InventoryInterval time.Duration
	// JobTimeout bounds one triggered pass.
	JobTimeout time.Duration
}

func (c *SyncTriggerConfig) applyDefaults() {
	if c.OrderInterval == 0 {
		c.OrderInterval = 15 * time.Minute
	}
	if c.InventoryInterval == 0 {
		c.InventoryInterval = 6 * time.Hour
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = 15 * time.Minute
	}
}

// SyncTrigger periodically kicks both sync pipelines.
type SyncTrigger struct {
	config    SyncTriggerConfig
	orders    OrderSyncRunner
	inventory InventorySyncRunner
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncTrigger creates a new SyncTrigger.
func NewSyncTrigger(
	config SyncTriggerConfig,
	orders OrderSyncRunner,
	inventory InventorySyncRunner,
	logger *zap.Logger,
) *SyncTrigger {
	config.applyDefaults()
	return &SyncTrigger{
		config:    config,
		orders:    orders,
		inventory: inventory,
		logger:    logger.Named("scheduler"),
	}
}

// Start launches the trigger loops. Idempotent.
func (t *SyncTrigger) Start(ctx context.Context) {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(2)
	go t.loop(ctx, t.config.OrderInterval, t.runOrderSync)
	go t.loop(ctx, t.config.InventoryInterval, t.runInventorySync)

	t.logger.Info("Sync trigger started",
		zap.Duration("order_interval", t.config.OrderInterval),
		zap.Duration("inventory_interval", t.config.InventoryInterval),
	)
}

// Stop cancels the loops and waits for in-flight passes to return.
func (t *SyncTrigger) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
	t.logger.Info("Sync trigger stopped")
}

// loop fires fn on every tick until the context ends.
func (t *SyncTrigger) loop(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobCtx, cancel := context.WithTimeout(ctx, t.config.JobTimeout)
			fn(jobCtx)
			cancel()
		}
	}
}

func (t *SyncTrigger) runOrderSync(ctx context.Context) {
	if _, err := t.orders.SyncNow(ctx, false); err != nil {
		// A pass triggered over HTTP may already hold the slot.
		if errors.Is(err, appsales.ErrSyncInProgress) {
			t.logger.Debug("Order sync already running, skipping scheduled pass")
			return
		}
		t.logger.Error("Scheduled order sync failed", zap.Error(err))
	}
}

func (t *SyncTrigger) runInventorySync(ctx context.Context) {
	if _, err := t.inventory.SyncInventory(ctx); err != nil {
		if errors.Is(err, appcatalog.ErrInventorySyncInProgress) {
			t.logger.Debug("Inventory sync already running, skipping scheduled pass")
			return
		}
		t.logger.Error("Scheduled inventory sync failed", zap.Error(err))
	}
}
