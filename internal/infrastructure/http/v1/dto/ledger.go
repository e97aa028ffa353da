package dto

import (
	"time"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/internal/domain/ledger"
)

// LedgerQuery is the query string of the ledger endpoints.
type LedgerQuery struct {
	Date  string `form:"date"`
	Range string `form:"range"`
}

// Request converts the query into a ledger request. An empty date means today.
func (q LedgerQuery) Request(outlet string, today types.Date) (ledger.Request, error) {
	anchor := today
	if q.Date != "" {
		d, err := types.ParseDate(q.Date)
		if err != nil {
			return ledger.Request{}, apperror.NewValidation("invalid date").
				WithDetail("field", "date").
				WithDetail("value", q.Date)
		}
		anchor = d
	}

	mode, err := ledger.ParseMode(q.Range)
	if err != nil {
		return ledger.Request{}, err
	}
	return ledger.Request{Outlet: outlet, Anchor: anchor, Mode: mode}, nil
}

// SetCurrentStockRequest is the body of PUT .../current-stock.
type SetCurrentStockRequest struct {
	Date  string   `json:"date" binding:"required"`
	Whole *float64 `json:"whole" binding:"required"`
	Sub   float64  `json:"sub"`
}

// Command converts the body into an override command.
func (r SetCurrentStockRequest) Command(outlet, productID string) (ledger.SetCurrentStockCommand, error) {
	d, err := types.ParseDate(r.Date)
	if err != nil {
		return ledger.SetCurrentStockCommand{}, apperror.NewValidation("invalid date").
			WithDetail("field", "date").
			WithDetail("value", r.Date)
	}
	return ledger.SetCurrentStockCommand{
		Outlet:    outlet,
		ProductID: productID,
		Date:      d,
		Whole:     *r.Whole,
		Sub:       r.Sub,
	}, nil
}

// OverrideEntry is one item of the override history.
type OverrideEntry struct {
	ID        string             `json:"id"`
	CheckID   string             `json:"checkId"`
	ProductID string             `json:"productId"`
	Date      string             `json:"date"`
	Operator  string             `json:"operator"`
	Created   bool               `json:"created"`
	Previous  []stockcheck.Count `json:"previous"`
	Current   []stockcheck.Count `json:"current"`
	CreatedAt time.Time          `json:"createdAt"`
}

// FromOverrideRecords maps audited overrides to the response.
func FromOverrideRecords(records []ledger.OverrideRecord) []OverrideEntry {
	out := make([]OverrideEntry, 0, len(records))
	for _, r := range records {
		out = append(out, OverrideEntry{
			ID:        r.ID.String(),
			CheckID:   r.Override.CheckID.String(),
			ProductID: r.Override.ProductID,
			Date:      r.Override.Date.String(),
			Operator:  r.Override.Operator,
			Created:   r.Override.Created,
			Previous:  r.Override.Previous,
			Current:   r.Override.Current,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}
