package ledger

import (
	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/conversion"
)

// Quantity is an emitted amount rounded to two decimal places.
type Quantity struct {
	Whole float64 `json:"whole"`
	Sub   float64 `json:"sub"`
}

// IsZero reports whether both components are zero.
func (q Quantity) IsZero() bool {
	return q.Whole == 0 && q.Sub == 0
}

func emit(a conversion.Amount) Quantity {
	w, s := a.Emitted()
	return Quantity{Whole: w, Sub: s}
}

// DailyInventoryRecord is the derived ledger line of one product on one date.
// It is never stored as a source of truth. A record is emitted when any of
// its six quantities is non-zero or when it carries an override date, so an
// override to zero still shows up.
type DailyInventoryRecord struct {
	Date        types.Date `json:"date"`
	Opening     Quantity   `json:"opening"`
	Received    Quantity   `json:"received"`
	Wastage     Quantity   `json:"wastage"`
	Sold        Quantity   `json:"sold"`
	Current     Quantity   `json:"current"`
	Discrepancy Quantity   `json:"discrepancy"`

	ManuallyEditedDate   types.Date `json:"manuallyEditedDate,omitempty"`
	ReplaceInventoryDate types.Date `json:"replaceInventoryDate,omitempty"`
}

// empty reports whether the record carries no information: all six
// quantities are zero and no override applied.
func (r DailyInventoryRecord) empty() bool {
	return r.Opening.IsZero() && r.Received.IsZero() && r.Wastage.IsZero() &&
		r.Sold.IsZero() && r.Current.IsZero() && r.Discrepancy.IsZero() &&
		r.ManuallyEditedDate.IsZero() && r.ReplaceInventoryDate.IsZero()
}

// ProductInventoryHistory is the ordered ledger of one product, or of one
// conversion pair keyed by its whole-side product.
type ProductInventoryHistory struct {
	ProductID   string           `json:"productId"`
	Name        string           `json:"name"`
	DisplayUnit string           `json:"displayUnit"`
	Category    catalog.Category `json:"category"`

	// SubProductID and Factor are set for paired products.
	SubProductID string `json:"subProductId,omitempty"`
	Factor       int    `json:"factor,omitempty"`

	// Records holds only dates with activity. A missing date means no
	// information, not zero stock.
	Records []DailyInventoryRecord `json:"records"`
}

// Record returns the record of date d.
func (h *ProductInventoryHistory) Record(d types.Date) (DailyInventoryRecord, bool) {
	for _, r := range h.Records {
		if r.Date == d {
			return r, true
		}
	}
	return DailyInventoryRecord{}, false
}

// Ledger is the result of one evaluation of an outlet's window.
type Ledger struct {
	Outlet   string                    `json:"outlet"`
	Anchor   types.Date                `json:"anchor"`
	Mode     Mode                      `json:"mode"`
	Dates    []types.Date              `json:"dates"`
	Products []ProductInventoryHistory `json:"products"`
}

// Product returns the history of productID, matching either side of a pair.
func (l *Ledger) Product(productID string) (*ProductInventoryHistory, bool) {
	for i := range l.Products {
		h := &l.Products[i]
		if h.ProductID == productID || (h.SubProductID != "" && h.SubProductID == productID) {
			return h, true
		}
	}
	return nil, false
}
