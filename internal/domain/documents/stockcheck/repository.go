package stockcheck

import (
	"context"

	"outletstock/internal/core/types"
)

// Repository persists stock checks through the synchronization layer.
// Reads never return tombstoned checks.
type Repository interface {
	// ListByOutletDates returns the checks of outlet dated within [from, to].
	ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*StockCheck, error)

	// ListByOutletDate returns the checks of outlet on date.
	ListByOutletDate(ctx context.Context, outlet string, date types.Date) ([]*StockCheck, error)

	// Save inserts the check or updates it in place, replacing its counts.
	Save(ctx context.Context, check *StockCheck) error
}
