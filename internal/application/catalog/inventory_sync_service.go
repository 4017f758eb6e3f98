// Package catalog runs the inventory and attribute sync pipeline, refreshing
// the local variant catalog from the storefront platform.
package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/domain/catalog"
	"github.com/shelfwise/backend/internal/domain/sales"
	"github.com/shelfwise/backend/internal/domain/storefront"
)

// InventorySyncConfig holds the inventory pipeline tuning.
type InventorySyncConfig struct {
	// Credentials identify the shop to pull from.
	Credentials storefront.Credentials
	// BatchSize is the number of variant ids per combined platform query,
	// capped at storefront.MaxVariantBatch.
	BatchSize int
	// JobTimeout bounds a background pass started over HTTP.
	JobTimeout time.Duration
}

func (c *InventorySyncConfig) applyDefaults() {
	if c.BatchSize <= 0 || c.BatchSize > storefront.MaxVariantBatch {
		c.BatchSize = storefront.MaxVariantBatch
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = 10 * time.Minute
	}
}

// InventorySyncResult summarizes one inventory pass.
type InventorySyncResult struct {
	VariantsRequested int
	VariantsSynced    int
	VariantsMissing   int
	Batches           int
	Duration          time.Duration
}

// InventorySyncService refreshes the local catalog for every variant that
// appears in the ingested order history.
type InventorySyncService struct {
	platform storefront.Storefront
	orders   sales.OrderRepository
	variants catalog.VariantRepository
	config   InventorySyncConfig
	tracker  *inventoryStatusTracker
	logger   *zap.Logger
}

// NewInventorySyncService creates a new InventorySyncService.
func NewInventorySyncService(
	platform storefront.Storefront,
	orders sales.OrderRepository,
	variants catalog.VariantRepository,
	config InventorySyncConfig,
	logger *zap.Logger,
) *InventorySyncService {
	config.applyDefaults()
	return &InventorySyncService{
		platform: platform,
		orders:   orders,
		variants: variants,
		config:   config,
		tracker:  newInventoryStatusTracker(),
		logger:   logger.Named("inventory_sync"),
	}
}

// Status returns a snapshot of the inventory pipeline state.
func (s *InventorySyncService) Status() InventorySyncStatus {
	return s.tracker.snapshot()
}

// StartInventorySync claims the single in-flight slot and runs a pass in the
// background. Returns ErrInventorySyncInProgress when a pass is running.
func (s *InventorySyncService) StartInventorySync() error {
	if err := s.tracker.begin(); err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
		defer cancel()
		s.runClaimed(ctx)
	}()
	return nil
}

// SyncInventory claims the slot and runs one pass synchronously.
func (s *InventorySyncService) SyncInventory(ctx context.Context) (*InventorySyncResult, error) {
	if err := s.tracker.begin(); err != nil {
		return nil, err
	}
	return s.runClaimed(ctx)
}

func (s *InventorySyncService) runClaimed(ctx context.Context) (*InventorySyncResult, error) {
	result, err := s.run(ctx)
	if err != nil {
		s.tracker.fail(err)
		s.logger.Error("Inventory sync failed", zap.Error(err))
		return nil, err
	}
	s.tracker.complete(result)
	return result, nil
}

// run pulls current inventory levels and classification attributes for all
// variants referenced by order history, in combined batches.
//
// Attributes the platform no longer reports come back as nil pointers and
// are persisted as explicit clears, so a vendor or distributor deleted
// upstream does not linger locally.
func (s *InventorySyncService) run(ctx context.Context) (*InventorySyncResult, error) {
	started := time.Now()

	ids, err := s.orders.ListVariantKeys(ctx)
	if err != nil {
		return nil, err
	}

	result := &InventorySyncResult{VariantsRequested: len(ids)}

	for start := 0; start < len(ids); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		fetched, err := s.platform.GetVariants(ctx, s.config.Credentials, batch)
		if err != nil {
			return nil, err
		}
		result.Batches++

		seen := make(map[string]bool, len(fetched))
		for i := range fetched {
			variant := variantFromPlatform(&fetched[i])
			if err := s.variants.UpsertVariant(ctx, variant); err != nil {
				return nil, err
			}
			seen[variant.VariantID] = true
			result.VariantsSynced++
		}

		// Variants the platform no longer returns were deleted upstream.
		// They stay in the local catalog untouched; correlation history
		// still references them.
		for _, id := range batch {
			if !seen[id] {
				s.logger.Warn("Variant missing upstream", zap.String("variant_id", id))
				result.VariantsMissing++
			}
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	result.Duration = time.Since(started)
	s.logger.Info("Inventory sync completed",
		zap.Int("requested", result.VariantsRequested),
		zap.Int("synced", result.VariantsSynced),
		zap.Int("missing", result.VariantsMissing),
		zap.Int("batches", result.Batches),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// variantFromPlatform converts a platform variant to the catalog entity.
func variantFromPlatform(pv *storefront.PlatformVariant) *catalog.Variant {
	now := time.Now()
	return &catalog.Variant{
		VariantID:         pv.VariantID,
		SKU:               pv.SKU,
		Title:             pv.Title,
		Price:             pv.Price,
		Cost:              pv.Cost,
		InventoryQuantity: pv.InventoryQuantity,
		Vendor:            pv.Vendor,
		Distributor:       pv.Distributor,
		Tags:              pv.Tags,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
