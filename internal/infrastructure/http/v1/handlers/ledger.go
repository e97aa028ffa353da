package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "outletstock/internal/core/context"
	"outletstock/internal/domain/ledger"
	"outletstock/internal/infrastructure/http/v1/dto"
)

// LedgerService is the part of ledger.Service the handlers use.
type LedgerService interface {
	LedgerForView(ctx context.Context, viewID string, req ledger.Request) (*ledger.Ledger, error)
	ProductLedger(ctx context.Context, req ledger.Request, productID string) (*ledger.ProductInventoryHistory, error)
}

// LedgerHandler serves derived inventory ledgers.
type LedgerHandler struct {
	BaseHandler
	service LedgerService
}

func NewLedgerHandler(service LedgerService) *LedgerHandler {
	return &LedgerHandler{BaseHandler: NewBaseHandler(), service: service}
}

func (h *LedgerHandler) request(c *gin.Context) (ledger.Request, bool) {
	var q dto.LedgerQuery
	if !h.BindQuery(c, &q) {
		return ledger.Request{}, false
	}
	req, err := q.Request(c.Param("outlet"), h.Today())
	if err != nil {
		h.HandleError(c, err)
		return ledger.Request{}, false
	}
	return req, true
}

// Get returns the ledger of every selected product.
// GET /api/v1/outlets/:outlet/ledger?date=&range=
func (h *LedgerHandler) Get(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	l, err := h.service.LedgerForView(ctx, appctx.GetViewID(ctx), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// GetProduct returns the history of one product.
// GET /api/v1/outlets/:outlet/ledger/:productId?date=&range=
func (h *LedgerHandler) GetProduct(c *gin.Context) {
	req, ok := h.request(c)
	if !ok {
		return
	}

	hist, err := h.service.ProductLedger(c.Request.Context(), req, c.Param("productId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}
