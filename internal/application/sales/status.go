package sales

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSyncInProgress indicates an order sync pass is already running; at most
// one pass may be in flight per instance.
var ErrSyncInProgress = errors.New("sales: order sync already in progress")

// SyncState is the lifecycle state of the order sync pipeline.
type SyncState string

const (
	SyncStateIdle      SyncState = "IDLE"
	SyncStateRunning   SyncState = "RUNNING"
	SyncStateCompleted SyncState = "COMPLETED"
	SyncStateFailed    SyncState = "FAILED"
)

// SyncProgress reports how far the running pass has come. Total is the
// upstream order count for the fetch window and stays zero when the count
// is unavailable.
type SyncProgress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// SyncStatus is a point-in-time snapshot of the sync pipeline, served by the
// status endpoint. Counters advance while a pass is running; the last_*
// fields describe the most recent terminal pass and survive the start of a
// new one.
type SyncStatus struct {
	State              SyncState    `json:"state"`
	IsProcessing       bool         `json:"is_processing"`
	Progress           SyncProgress `json:"progress"`
	StartedAt          *time.Time   `json:"started_at,omitempty"`
	FinishedAt         *time.Time   `json:"finished_at,omitempty"`
	WindowStart        *time.Time   `json:"window_start,omitempty"`
	PagesFetched       int          `json:"pages_fetched"`
	OrdersSynced       int          `json:"orders_synced"`
	ItemsSynced        int          `json:"items_synced"`
	OrdersSkipped      int          `json:"orders_skipped"`
	ReturningCustomers int64        `json:"returning_customers"`
	LastCompletedAt    *time.Time   `json:"last_completed_at,omitempty"`
	LastResult         string       `json:"last_result,omitempty"`
	Error              string       `json:"error,omitempty"`
}

// StatusTracker guards the single-flight invariant and accumulates progress.
// State is held in memory only: a restart forgets history, which is fine
// because the pipeline itself is idempotent.
type StatusTracker struct {
	mu     sync.Mutex
	status SyncStatus

	// Terminal outcome of the previous pass, kept so the status endpoint
	// still reports the last result while a new pass is running.
	lastCompletedAt *time.Time
	lastResult      string
}

// NewStatusTracker creates a tracker in the idle state.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: SyncStatus{State: SyncStateIdle}}
}

// Begin transitions to running, rejecting a second concurrent pass.
func (t *StatusTracker) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.State == SyncStateRunning {
		return ErrSyncInProgress
	}

	now := time.Now()
	t.status = SyncStatus{
		State:           SyncStateRunning,
		IsProcessing:    true,
		StartedAt:       &now,
		LastCompletedAt: t.lastCompletedAt,
		LastResult:      t.lastResult,
	}
	return nil
}

// SetWindow records the computed fetch window and the upstream order count
// for it once known. A zero total means the count was unavailable and
// progress degrades to processed-only.
func (t *StatusTracker) SetWindow(windowStart time.Time, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.WindowStart = &windowStart
	t.status.Progress.Total = total
}

// RecordPage accumulates one ingested page.
func (t *StatusTracker) RecordPage(orders, items, skipped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.PagesFetched++
	t.status.OrdersSynced += orders
	t.status.ItemsSynced += items
	t.status.OrdersSkipped += skipped
	t.status.Progress.Processed += orders + skipped
}

// Complete transitions to completed with the loyalty pass result.
func (t *StatusTracker) Complete(returningCustomers int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.status.State = SyncStateCompleted
	t.status.IsProcessing = false
	t.status.FinishedAt = &now
	t.status.ReturningCustomers = returningCustomers

	t.lastCompletedAt = &now
	t.lastResult = fmt.Sprintf("completed: %d orders, %d items synced, %d skipped, %d returning customers",
		t.status.OrdersSynced, t.status.ItemsSynced, t.status.OrdersSkipped, returningCustomers)
	t.status.LastCompletedAt = t.lastCompletedAt
	t.status.LastResult = t.lastResult
}

// Fail transitions to failed, keeping the partial counters. The completion
// timestamp is not advanced; only a successful pass counts as completed.
func (t *StatusTracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.status.State = SyncStateFailed
	t.status.IsProcessing = false
	t.status.FinishedAt = &now
	t.status.Error = err.Error()

	t.lastResult = "failed: " + err.Error()
	t.status.LastResult = t.lastResult
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() SyncStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}
