package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"outletstock/internal/domain/ledger"
	"outletstock/internal/infrastructure/http/v1/dto"
)

// OverrideGateway applies manual current-stock overrides.
type OverrideGateway interface {
	SetCurrentStock(ctx context.Context, cmd ledger.SetCurrentStockCommand) error
}

// OverrideHistory reads the override audit trail.
type OverrideHistory interface {
	Overrides(ctx context.Context, outlet string, limit int) ([]ledger.OverrideRecord, error)
}

// OverrideHandler serves manual overrides.
type OverrideHandler struct {
	BaseHandler
	gateway OverrideGateway
	history OverrideHistory
}

// NewOverrideHandler creates the handler. history may be nil, which disables
// the history endpoint.
func NewOverrideHandler(gateway OverrideGateway, history OverrideHistory) *OverrideHandler {
	return &OverrideHandler{BaseHandler: NewBaseHandler(), gateway: gateway, history: history}
}

// SetCurrentStock overrides one product's current stock on a date.
// PUT /api/v1/outlets/:outlet/products/:productId/current-stock
func (h *OverrideHandler) SetCurrentStock(c *gin.Context) {
	var body dto.SetCurrentStockRequest
	if !h.BindJSON(c, &body) {
		return
	}
	cmd, err := body.Command(c.Param("outlet"), c.Param("productId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.gateway.SetCurrentStock(c.Request.Context(), cmd); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History lists the latest overrides of an outlet.
// GET /api/v1/outlets/:outlet/overrides?limit=
func (h *OverrideHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, []dto.OverrideEntry{})
		return
	}
	records, err := h.history.Overrides(c.Request.Context(), c.Param("outlet"), h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromOverrideRecords(records))
}
