// Package sales provides point-of-sale reconciliation reports.
package sales

import (
	"context"
	"time"

	"outletstock/internal/core/types"
)

// SourceUnit records which column of the point-of-sale export an item came
// from. Items from the oldest exports carry no tag.
type SourceUnit string

const (
	SourceNone      SourceUnit = ""
	SourceWhole     SourceUnit = "whole"
	SourceSlices    SourceUnit = "slices"
	SourceAggregate SourceUnit = "aggregate"
	SourceLegacy    SourceUnit = "legacy"
)

// Item is the sale of one product.
type Item struct {
	ProductID  string     `json:"productId"`
	SoldWhole  float64    `json:"soldWhole"`
	SoldSlices float64    `json:"soldSlices"`
	SourceUnit SourceUnit `json:"sourceUnit,omitempty"`
}

// Tagged reports whether the item carries a source unit tag.
func (i Item) Tagged() bool {
	return i.SourceUnit != SourceNone
}

// RawConsumption is the raw material used by sales of menu items.
type RawConsumption struct {
	RawProductID   string  `json:"rawProductId"`
	ConsumedWhole  float64 `json:"consumedWhole"`
	ConsumedSlices float64 `json:"consumedSlices"`
}

// Report is the ingested sales report of an outlet for one date.
type Report struct {
	ID             string           `db:"id" json:"id"`
	Outlet         string           `db:"outlet" json:"outlet"`
	Date           types.Date       `db:"date" json:"date"`
	Items          []Item           `db:"items" json:"items"`
	RawConsumption []RawConsumption `db:"raw_consumption" json:"rawConsumption,omitempty"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}

// ItemsFor returns the items recorded under any of ids, in report order.
func (r *Report) ItemsFor(ids ...string) []Item {
	var out []Item
	for _, it := range r.Items {
		for _, id := range ids {
			if it.ProductID == id {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// Raw returns the consumption line of rawProductID.
func (r *Report) Raw(rawProductID string) (RawConsumption, bool) {
	for _, rc := range r.RawConsumption {
		if rc.RawProductID == rawProductID {
			return rc, true
		}
	}
	return RawConsumption{}, false
}

// Repository reads sales reports.
type Repository interface {
	ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*Report, error)
}
