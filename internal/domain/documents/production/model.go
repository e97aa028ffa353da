// Package production provides kitchen production reports.
package production

import (
	"context"
	"time"

	"outletstock/internal/core/types"
)

// Item is the production of one product. ProductID is always the whole-side
// id for paired products.
type Item struct {
	ProductID      string  `json:"productId"`
	QuantityWhole  float64 `json:"quantityWhole"`
	QuantitySlices float64 `json:"quantitySlices"`
}

// ProdsReqDelta is a production-request adjustment for one product.
type ProdsReqDelta struct {
	ProductID string    `json:"productId"`
	Whole     float64   `json:"whole"`
	Sub       float64   `json:"sub"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Report is the ingested production report of an outlet for one date.
type Report struct {
	ID        string          `db:"id" json:"id"`
	Outlet    string          `db:"outlet" json:"outlet"`
	Date      types.Date      `db:"date" json:"date"`
	Items     []Item          `db:"items" json:"items"`
	ProdsReq  []ProdsReqDelta `db:"prods_req" json:"prodsReq,omitempty"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// Item returns the production line of productID.
func (r *Report) Item(productID string) (Item, bool) {
	for _, it := range r.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return Item{}, false
}

// LatestProdsReq returns the most recently updated delta for productID.
func (r *Report) LatestProdsReq(productID string) (ProdsReqDelta, bool) {
	var (
		best  ProdsReqDelta
		found bool
	)
	for _, d := range r.ProdsReq {
		if d.ProductID != productID {
			continue
		}
		if !found || d.UpdatedAt.After(best.UpdatedAt) {
			best, found = d, true
		}
	}
	return best, found
}

// Repository reads production reports.
type Repository interface {
	ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*Report, error)
}
