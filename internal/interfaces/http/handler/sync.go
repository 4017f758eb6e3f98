package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	appcatalog "github.com/shelfwise/backend/internal/application/catalog"
	appsales "github.com/shelfwise/backend/internal/application/sales"
	"github.com/shelfwise/backend/internal/domain/storefront"
)

// OrderSyncStarter triggers order sync passes and reports their progress.
type OrderSyncStarter interface {
	StartSyncWith(opts appsales.SyncOptions) error
	Status() appsales.SyncStatus
}

// InventorySyncStarter triggers inventory passes and reports their progress.
type InventorySyncStarter interface {
	StartInventorySync() error
	Status() appcatalog.InventorySyncStatus
}

// SyncHandler handles sync trigger and status endpoints
type SyncHandler struct {
	BaseHandler
	orders    OrderSyncStarter
	inventory InventorySyncStarter
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orders OrderSyncStarter, inventory InventorySyncStarter) *SyncHandler {
	return &SyncHandler{
		orders:    orders,
		inventory: inventory,
	}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/orders", h.TriggerOrderSync)
		sync.GET("/status", h.GetOrderSyncStatus)
		sync.POST("/inventory", h.TriggerInventorySync)
		sync.GET("/inventory/status", h.GetInventorySyncStatus)
	}
}

// TriggerOrderSyncRequest represents a request to start an order sync pass.
// ShopDomain and AccessToken, when both set, override the configured shop
// for this pass only.
type TriggerOrderSyncRequest struct {
	ForceFullSync bool   `json:"force_full_sync"`
	ShopDomain    string `json:"shop_domain"`
	AccessToken   string `json:"access_token"`
}

// TriggerSyncResponse confirms a background pass was started
type TriggerSyncResponse struct {
	Message       string `json:"message"`
	ForceFullSync bool   `json:"force_full_sync,omitempty"`
}

// SyncBusyResponse is the 409 payload when a pass is already in flight
type SyncBusyResponse struct {
	Processing bool `json:"processing"`
}

// TriggerOrderSync starts an order sync pass in the background. The body is
// optional; an empty body means an incremental pass.
func (h *SyncHandler) TriggerOrderSync(c *gin.Context) {
	var req TriggerOrderSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	opts := appsales.SyncOptions{FullResync: req.ForceFullSync}
	if req.ShopDomain != "" && req.AccessToken != "" {
		opts.Credentials = &storefront.Credentials{
			ShopDomain:  req.ShopDomain,
			AccessToken: req.AccessToken,
		}
	}

	if err := h.orders.StartSyncWith(opts); err != nil {
		if errors.Is(err, appsales.ErrSyncInProgress) {
			h.ConflictWithData(c, "order sync already in progress", SyncBusyResponse{Processing: true})
			return
		}
		h.Internal(c, "failed to start order sync")
		return
	}

	h.Accepted(c, TriggerSyncResponse{
		Message:       "order sync started",
		ForceFullSync: req.ForceFullSync,
	})
}

// GetOrderSyncStatus returns the current order sync snapshot
func (h *SyncHandler) GetOrderSyncStatus(c *gin.Context) {
	h.Success(c, h.orders.Status())
}

// TriggerInventorySync starts an inventory pass in the background
func (h *SyncHandler) TriggerInventorySync(c *gin.Context) {
	if err := h.inventory.StartInventorySync(); err != nil {
		if errors.Is(err, appcatalog.ErrInventorySyncInProgress) {
			h.ConflictWithData(c, "inventory sync already in progress", SyncBusyResponse{Processing: true})
			return
		}
		h.Internal(c, "failed to start inventory sync")
		return
	}

	h.Accepted(c, TriggerSyncResponse{Message: "inventory sync started"})
}

// GetInventorySyncStatus returns the current inventory sync snapshot
func (h *SyncHandler) GetInventorySyncStatus(c *gin.Context) {
	h.Success(c, h.inventory.Status())
}
