// Package security provides the policies that gate writes into past periods.
package security

import (
	"context"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
)

// OverridePolicy decides whether a stock figure dated docDate may still be changed.
type OverridePolicy interface {
	// CanModify returns an AppError when docDate lies in a closed period.
	CanModify(ctx context.Context, docDate types.Date) error

	// ClosedUntil returns the first date that is still open (zero when nothing is closed).
	ClosedUntil(ctx context.Context) types.Date
}

// StrictPolicy forbids any change dated before closedUntil.
type StrictPolicy struct {
	closedUntil types.Date
}

// NewStrictPolicy creates a policy that forbids changes before closedUntil.
func NewStrictPolicy(closedUntil types.Date) *StrictPolicy {
	return &StrictPolicy{closedUntil: closedUntil}
}

func (p *StrictPolicy) CanModify(ctx context.Context, docDate types.Date) error {
	if !p.closedUntil.IsZero() && docDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.String()).
			WithDetail("date", docDate.String())
	}
	return nil
}

func (p *StrictPolicy) ClosedUntil(ctx context.Context) types.Date {
	return p.closedUntil
}

// OpenPolicy allows all operations (for development/testing).
type OpenPolicy struct{}

func (OpenPolicy) CanModify(ctx context.Context, docDate types.Date) error { return nil }
func (OpenPolicy) ClosedUntil(ctx context.Context) types.Date              { return "" }

// PolicyFor returns a StrictPolicy when closedUntil is set, otherwise an OpenPolicy.
func PolicyFor(closedUntil types.Date) OverridePolicy {
	if closedUntil.IsZero() {
		return OpenPolicy{}
	}
	return NewStrictPolicy(closedUntil)
}
