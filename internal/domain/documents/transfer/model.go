// Package transfer provides inter-outlet transfer requests.
package transfer

import (
	"context"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
)

// Status is the approval state of a transfer request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request moves Quantity whole-unit equivalents of ProductID from one outlet
// to another.
type Request struct {
	ID          string     `db:"id" json:"id"`
	ProductID   string     `db:"product_id" json:"productId"`
	FromOutlet  string     `db:"from_outlet" json:"fromOutlet"`
	ToOutlet    string     `db:"to_outlet" json:"toOutlet"`
	RequestDate types.Date `db:"request_date" json:"requestDate"`
	Quantity    float64    `db:"quantity" json:"quantity"`
	Status      Status     `db:"status" json:"status"`
}

// Approved reports whether the request participates in stock movement.
func (r Request) Approved() bool {
	return r.Status == StatusApproved
}

// Validate implements entity.Validatable.
func (r Request) Validate(ctx context.Context) error {
	switch r.Status {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return apperror.NewValidation("unknown transfer status").WithDetail("status", r.Status)
	}
	if r.ProductID == "" {
		return apperror.NewValidation("productId is required")
	}
	if r.FromOutlet == r.ToOutlet {
		return apperror.NewValidation("transfer must move stock between two outlets").
			WithDetail("outlet", r.FromOutlet)
	}
	return nil
}

// Repository reads transfer requests.
type Repository interface {
	// ListByOutletDates returns requests dated within [from, to] that move
	// stock into or out of outlet, in any status.
	ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]Request, error)
}
