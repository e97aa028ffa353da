// Package legacy provides the read-only reconciliation history kept from
// older releases. It is consulted only when the modern reports are absent or
// report nothing.
package legacy

import (
	"context"
	"time"

	"outletstock/internal/core/types"
)

// SalesEntry is a sold quantity in the unit of ProductID.
type SalesEntry struct {
	ProductID string  `json:"productId"`
	Sold      float64 `json:"sold"`
}

// Shape identifies which generation of export wrote a raw consumption line.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeSplit carries separate whole and sub-unit counts.
	ShapeSplit
	// ShapeAggregate carries one whole-unit quantity.
	ShapeAggregate
)

func (s Shape) String() string {
	switch s {
	case ShapeSplit:
		return "split"
	case ShapeAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// RawConsumption is a raw-material line. Which fields are present depends on
// the export generation.
type RawConsumption struct {
	RawProductID  string   `json:"rawProductId"`
	Consumed      *float64 `json:"consumed,omitempty"`
	ConsumedWhole *float64 `json:"consumedWhole,omitempty"`
	ConsumedSub   *float64 `json:"consumedSub,omitempty"`
}

// Shape classifies the line. A line carrying both forms, or neither, is
// ambiguous.
func (rc RawConsumption) Shape() Shape {
	split := rc.ConsumedWhole != nil || rc.ConsumedSub != nil
	agg := rc.Consumed != nil
	switch {
	case split && !agg:
		return ShapeSplit
	case agg && !split:
		return ShapeAggregate
	default:
		return ShapeUnknown
	}
}

// ProdsReqUpdate is a production-request adjustment recorded on a date.
type ProdsReqUpdate struct {
	ProductID string    `json:"productId"`
	Whole     float64   `json:"whole"`
	Sub       float64   `json:"sub"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entry is one day of reconciliation history at one outlet.
type Entry struct {
	ID              string           `db:"id" json:"id"`
	Outlet          string           `db:"outlet" json:"outlet"`
	Date            types.Date       `db:"date" json:"date"`
	SalesData       []SalesEntry     `db:"sales_data" json:"salesData,omitempty"`
	RawConsumption  []RawConsumption `db:"raw_consumption" json:"rawConsumption,omitempty"`
	ProdsReqUpdates []ProdsReqUpdate `db:"prods_req_updates" json:"prodsReqUpdates,omitempty"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

// Sold returns the sum of sales recorded under productID.
func (e *Entry) Sold(productID string) (float64, bool) {
	var (
		sum   float64
		found bool
	)
	for _, s := range e.SalesData {
		if s.ProductID == productID {
			sum += s.Sold
			found = true
		}
	}
	return sum, found
}

// Raw returns the raw consumption line of rawProductID.
func (e *Entry) Raw(rawProductID string) (RawConsumption, bool) {
	for _, rc := range e.RawConsumption {
		if rc.RawProductID == rawProductID {
			return rc, true
		}
	}
	return RawConsumption{}, false
}

// LatestProdsReq returns the most recently updated adjustment for productID.
func (e *Entry) LatestProdsReq(productID string) (ProdsReqUpdate, bool) {
	var (
		best  ProdsReqUpdate
		found bool
	)
	for _, u := range e.ProdsReqUpdates {
		if u.ProductID != productID {
			continue
		}
		if !found || u.UpdatedAt.After(best.UpdatedAt) {
			best, found = u, true
		}
	}
	return best, found
}

// Repository reads the reconciliation history.
type Repository interface {
	ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*Entry, error)
}
