package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfwise/backend/internal/domain/analytics"
)

// CorrelationReader serves the ranked co-purchase pairs.
type CorrelationReader interface {
	TopCorrelations(ctx context.Context, limit int) ([]analytics.CorrelationEdge, error)
}

// CorrelationHandler handles correlation read endpoints
type CorrelationHandler struct {
	BaseHandler
	correlations CorrelationReader
}

// NewCorrelationHandler creates a new CorrelationHandler
func NewCorrelationHandler(correlations CorrelationReader) *CorrelationHandler {
	return &CorrelationHandler{correlations: correlations}
}

// RegisterRoutes registers correlation routes
func (h *CorrelationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/correlations", h.ListCorrelations)
}

// CorrelationResponse represents one co-purchase pair in the response
type CorrelationResponse struct {
	ProductA            string    `json:"product_a"`
	ProductB            string    `json:"product_b"`
	TimesBoughtTogether int64     `json:"times_bought_together"`
	CorrelationScore    float64   `json:"correlation_score"`
	ComputedAt          time.Time `json:"computed_at"`
}

// ListCorrelations returns the strongest co-purchase pairs, ranked by
// co-purchase count. The optional limit parameter caps the page.
func (h *CorrelationHandler) ListCorrelations(c *gin.Context) {
	limit := analytics.DefaultTopLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	edges, err := h.correlations.TopCorrelations(c.Request.Context(), limit)
	if err != nil {
		h.Internal(c, "failed to load correlations")
		return
	}

	items := make([]CorrelationResponse, 0, len(edges))
	for _, edge := range edges {
		items = append(items, CorrelationResponse{
			ProductA:            edge.ProductA,
			ProductB:            edge.ProductB,
			TimesBoughtTogether: edge.CoPurchaseCount,
			CorrelationScore:    edge.Score,
			ComputedAt:          edge.ComputedAt,
		})
	}

	h.Success(c, items)
}
