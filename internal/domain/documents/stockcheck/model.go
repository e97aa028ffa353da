// Package stockcheck provides the StockCheck document: an operator's count of
// every product at one outlet on one date.
package stockcheck

import (
	"context"
	"strings"
	"time"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/entity"
	"outletstock/internal/core/types"
)

// AutoCompletedBy marks checks generated by automatic transfer postings.
const AutoCompletedBy = "AUTO"

// Count is one product line of a stock check.
type Count struct {
	ProductID     string  `db:"product_id" json:"productId"`
	Quantity      float64 `db:"quantity" json:"quantity"`
	OpeningStock  float64 `db:"opening_stock" json:"openingStock"`
	ReceivedStock float64 `db:"received_stock" json:"receivedStock"`
	Wastage       float64 `db:"wastage" json:"wastage"`

	// ManuallyEditedDate is the only date on which Quantity overrides the
	// computed current stock.
	ManuallyEditedDate types.Date `db:"manually_edited_date" json:"manuallyEditedDate,omitempty"`

	AutoFilledReceivedFromProdReq *float64 `db:"auto_filled_received_from_prod_req" json:"autoFilledReceivedFromProdReq,omitempty"`
}

// EditedOn reports whether the count was manually overridden for exactly d.
func (c Count) EditedOn(d types.Date) bool {
	return !c.ManuallyEditedDate.IsZero() && c.ManuallyEditedDate == d
}

// StockCheck is a document holding the counts taken at an outlet.
type StockCheck struct {
	entity.BaseRecord

	Outlet      string     `db:"outlet" json:"outlet"`
	Date        types.Date `db:"date" json:"date"`
	Timestamp   time.Time  `db:"timestamp" json:"timestamp"`
	CompletedBy string     `db:"completed_by" json:"completedBy"`

	// ReplaceAllInventory makes the counts the day's current stock, whatever
	// was computed from movements.
	ReplaceAllInventory bool `db:"replace_all_inventory" json:"replaceAllInventory"`

	Counts []Count `db:"-" json:"counts"`
}

// New creates a user-authored check for outlet/date.
func New(outlet string, date types.Date, completedBy string) *StockCheck {
	base := entity.NewBaseRecord()
	return &StockCheck{
		BaseRecord:  base,
		Outlet:      outlet,
		Date:        date,
		Timestamp:   base.CreatedAt,
		CompletedBy: completedBy,
		Counts:      make([]Count, 0),
	}
}

// IsUserAuthored reports whether a person completed the check. System checks
// are excluded from ledger derivation to avoid feedback loops.
func (c *StockCheck) IsUserAuthored() bool {
	by := strings.TrimSpace(c.CompletedBy)
	return by != "" && by != AutoCompletedBy
}

// Count returns the line for productID.
func (c *StockCheck) Count(productID string) (Count, bool) {
	for _, cnt := range c.Counts {
		if cnt.ProductID == productID {
			return cnt, true
		}
	}
	return Count{}, false
}

// UpsertCount returns a pointer to the line for productID, appending an empty
// line if the check has none.
func (c *StockCheck) UpsertCount(productID string) *Count {
	for i := range c.Counts {
		if c.Counts[i].ProductID == productID {
			return &c.Counts[i]
		}
	}
	c.Counts = append(c.Counts, Count{ProductID: productID})
	return &c.Counts[len(c.Counts)-1]
}

// Validate implements entity.Validatable.
func (c *StockCheck) Validate(ctx context.Context) error {
	if c.Outlet == "" {
		return apperror.NewValidation("outlet is required").WithDetail("field", "outlet")
	}
	if _, err := types.ParseDate(c.Date.String()); err != nil {
		return apperror.NewValidation("invalid date").WithDetail("field", "date").WithCause(err)
	}
	seen := make(map[string]struct{}, len(c.Counts))
	for _, cnt := range c.Counts {
		if cnt.ProductID == "" {
			return apperror.NewValidation("count without product").WithDetail("field", "counts")
		}
		if _, dup := seen[cnt.ProductID]; dup {
			return apperror.NewValidation("duplicate product in counts").
				WithDetail("productId", cnt.ProductID)
		}
		seen[cnt.ProductID] = struct{}{}
	}
	return nil
}

// LatestUserAuthored returns the user-authored check with the greatest
// timestamp, or nil. Ties are broken by UpdatedAt then ID so the choice does
// not depend on input order.
func LatestUserAuthored(checks []*StockCheck) *StockCheck {
	var latest *StockCheck
	for _, c := range checks {
		if c == nil || c.IsDeleted() || !c.IsUserAuthored() {
			continue
		}
		if latest == nil || newer(c, latest) {
			latest = c
		}
	}
	return latest
}

func newer(a, b *StockCheck) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID.String() > b.ID.String()
}
