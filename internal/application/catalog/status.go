package catalog

import (
	"errors"
	"sync"
	"time"
)

// ErrInventorySyncInProgress indicates an inventory pass is already running;
// at most one pass may be in flight per instance.
var ErrInventorySyncInProgress = errors.New("catalog: inventory sync already in progress")

// InventorySyncState is the lifecycle state of the inventory pipeline.
type InventorySyncState string

const (
	InventoryStateIdle      InventorySyncState = "IDLE"
	InventoryStateRunning   InventorySyncState = "RUNNING"
	InventoryStateCompleted InventorySyncState = "COMPLETED"
	InventoryStateFailed    InventorySyncState = "FAILED"
)

// InventorySyncStatus is a point-in-time snapshot of the inventory pipeline,
// served by the status endpoint.
type InventorySyncStatus struct {
	State             InventorySyncState `json:"state"`
	IsProcessing      bool               `json:"is_processing"`
	StartedAt         *time.Time         `json:"started_at,omitempty"`
	FinishedAt        *time.Time         `json:"finished_at,omitempty"`
	VariantsRequested int                `json:"variants_requested"`
	VariantsSynced    int                `json:"variants_synced"`
	VariantsMissing   int                `json:"variants_missing"`
	Batches           int                `json:"batches"`
	Error             string             `json:"error,omitempty"`
}

// inventoryStatusTracker guards the single-flight invariant for the inventory
// pipeline. In-memory only, same as the order sync tracker.
type inventoryStatusTracker struct {
	mu     sync.Mutex
	status InventorySyncStatus
}

func newInventoryStatusTracker() *inventoryStatusTracker {
	return &inventoryStatusTracker{status: InventorySyncStatus{State: InventoryStateIdle}}
}

func (t *inventoryStatusTracker) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.State == InventoryStateRunning {
		return ErrInventorySyncInProgress
	}

	now := time.Now()
	t.status = InventorySyncStatus{
		State:        InventoryStateRunning,
		IsProcessing: true,
		StartedAt:    &now,
	}
	return nil
}

func (t *inventoryStatusTracker) complete(result *InventorySyncResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.status.State = InventoryStateCompleted
	t.status.IsProcessing = false
	t.status.FinishedAt = &now
	t.status.VariantsRequested = result.VariantsRequested
	t.status.VariantsSynced = result.VariantsSynced
	t.status.VariantsMissing = result.VariantsMissing
	t.status.Batches = result.Batches
}

func (t *inventoryStatusTracker) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.status.State = InventoryStateFailed
	t.status.IsProcessing = false
	t.status.FinishedAt = &now
	t.status.Error = err.Error()
}

func (t *inventoryStatusTracker) snapshot() InventorySyncStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
