package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcatalog "github.com/shelfwise/backend/internal/application/catalog"
	appsales "github.com/shelfwise/backend/internal/application/sales"
	"github.com/shelfwise/backend/internal/interfaces/http/dto"
)

type fakeOrderSync struct {
	err     error
	started []appsales.SyncOptions
	status  appsales.SyncStatus
}

func (f *fakeOrderSync) StartSyncWith(opts appsales.SyncOptions) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, opts)
	return nil
}

func (f *fakeOrderSync) Status() appsales.SyncStatus { return f.status }

type fakeInventorySync struct {
	err    error
	calls  int
	status appcatalog.InventorySyncStatus
}

func (f *fakeInventorySync) StartInventorySync() error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	return nil
}

func (f *fakeInventorySync) Status() appcatalog.InventorySyncStatus { return f.status }

func newSyncRouter(orders OrderSyncStarter, inventory InventorySyncStarter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSyncHandler(orders, inventory).RegisterRoutes(api)
	return engine
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTriggerOrderSyncEmptyBody(t *testing.T) {
	orders := &fakeOrderSync{}
	engine := newSyncRouter(orders, &fakeInventorySync{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/orders", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	require.Len(t, orders.started, 1)
	assert.False(t, orders.started[0].FullResync, "an empty body means an incremental pass")
	assert.Nil(t, orders.started[0].Credentials)
}

func TestTriggerOrderSyncFullResync(t *testing.T) {
	orders := &fakeOrderSync{}
	engine := newSyncRouter(orders, &fakeInventorySync{})

	body := bytes.NewBufferString(`{"force_full_sync":true}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/orders", body)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, orders.started, 1)
	assert.True(t, orders.started[0].FullResync)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["force_full_sync"])
}

func TestTriggerOrderSyncCredentialOverride(t *testing.T) {
	orders := &fakeOrderSync{}
	engine := newSyncRouter(orders, &fakeInventorySync{})

	body := bytes.NewBufferString(`{"shop_domain":"other.myshopify.com","access_token":"shpat_other"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/orders", body)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, orders.started, 1)
	creds := orders.started[0].Credentials
	require.NotNil(t, creds)
	assert.Equal(t, "other.myshopify.com", creds.ShopDomain)
	assert.Equal(t, "shpat_other", creds.AccessToken)
}

func TestTriggerOrderSyncPartialCredentialsIgnored(t *testing.T) {
	orders := &fakeOrderSync{}
	engine := newSyncRouter(orders, &fakeInventorySync{})

	body := bytes.NewBufferString(`{"shop_domain":"other.myshopify.com"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/orders", body)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, orders.started, 1)
	assert.Nil(t, orders.started[0].Credentials, "a domain without a token falls back to the configured shop")
}

func TestTriggerOrderSyncInvalidBody(t *testing.T) {
	orders := &fakeOrderSync{}
	engine := newSyncRouter(orders, &fakeInventorySync{})

	body := bytes.NewBufferString(`{"force_full_sync":`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/orders", body)
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, orders.started)
}

func TestTriggerOrderSyncConflict(t *testing.T) {
	orders := &fakeOrderSync{err: appsales.ErrSyncInProgress}
	engine := newSyncRouter(orders, &fakeInventorySync{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/orders", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeConflict, resp.Error.Code)

	// Busy responses identify themselves so pollers need not parse the code
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["processing"])
}

func TestGetOrderSyncStatus(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	completed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	orders := &fakeOrderSync{status: appsales.SyncStatus{
		State:           appsales.SyncStateRunning,
		IsProcessing:    true,
		Progress:        appsales.SyncProgress{Processed: 120, Total: 400},
		StartedAt:       &started,
		PagesFetched:    3,
		OrdersSynced:    120,
		LastCompletedAt: &completed,
		LastResult:      "completed: 80 orders, 190 items synced, 0 skipped, 12 returning customers",
	}}
	engine := newSyncRouter(orders, &fakeInventorySync{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "RUNNING", data["state"])
	assert.Equal(t, true, data["is_processing"])
	assert.Equal(t, float64(3), data["pages_fetched"])
	assert.Equal(t, float64(120), data["orders_synced"])

	progress := data["progress"].(map[string]interface{})
	assert.Equal(t, float64(120), progress["processed"])
	assert.Equal(t, float64(400), progress["total"])

	// The previous pass stays visible while the new one runs
	assert.NotEmpty(t, data["last_completed_at"])
	assert.Contains(t, data["last_result"], "80 orders")
}

func TestTriggerInventorySync(t *testing.T) {
	inventory := &fakeInventorySync{}
	engine := newSyncRouter(&fakeOrderSync{}, inventory)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/inventory", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, inventory.calls)
}

func TestTriggerInventorySyncConflict(t *testing.T) {
	inventory := &fakeInventorySync{err: appcatalog.ErrInventorySyncInProgress}
	engine := newSyncRouter(&fakeOrderSync{}, inventory)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/sync/inventory", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["processing"])
}

func TestGetInventorySyncStatus(t *testing.T) {
	inventory := &fakeInventorySync{status: appcatalog.InventorySyncStatus{
		State:          appcatalog.InventoryStateCompleted,
		VariantsSynced: 42,
	}}
	engine := newSyncRouter(&fakeOrderSync{}, inventory)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sync/inventory/status", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "COMPLETED", data["state"])
	assert.Equal(t, float64(42), data["variants_synced"])
}
