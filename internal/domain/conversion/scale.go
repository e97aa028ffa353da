package conversion

import (
	"github.com/shopspring/decimal"

	"outletstock/internal/core/types"
)

// Amount is a quantity expressed as whole units plus sub-units.
type Amount struct {
	Whole decimal.Decimal
	Sub   decimal.Decimal
}

// Zero reports whether both components are zero.
func (a Amount) Zero() bool {
	return a.Whole.IsZero() && a.Sub.IsZero()
}

// Emitted returns both components rounded for output.
func (a Amount) Emitted() (whole, sub float64) {
	return types.Emit(a.Whole), types.Emit(a.Sub)
}

// Scale converts between Amount and a single total expressed in sub-units.
// A zero Factor is a standalone product: the total is the whole quantity and
// the sub-unit component is always zero.
type Scale struct {
	Factor int
}

// Standalone is the scale of a product without a conversion pair.
var Standalone = Scale{}

// Paired reports whether the scale has a sub-unit.
func (s Scale) Paired() bool {
	return s.Factor > 0
}

func (s Scale) factor() decimal.Decimal {
	return decimal.NewFromInt(int64(s.Factor))
}

// Total returns whole*factor + sub.
func (s Scale) Total(a Amount) decimal.Decimal {
	if !s.Paired() {
		return a.Whole
	}
	return a.Whole.Mul(s.factor()).Add(a.Sub)
}

// FromWhole converts a whole-unit-equivalent quantity into sub-units.
func (s Scale) FromWhole(q decimal.Decimal) decimal.Decimal {
	if !s.Paired() {
		return q
	}
	return q.Mul(s.factor())
}

// Split decomposes a total back into whole and sub-units.
//
// For total >= 0: whole = floor(total/f), sub = round(total mod f).
// For total < 0: whole = -ceil(|total|/f) and sub is the positive complement
// f - (|total| mod f). A rounded remainder equal to f is carried into whole.
// The sub-unit component always satisfies 0 <= sub < f.
func (s Scale) Split(total decimal.Decimal) Amount {
	if !s.Paired() {
		return Amount{Whole: total, Sub: decimal.Zero}
	}

	f := s.factor()
	abs := total.Abs()
	q := abs.Div(f).Floor()
	r := abs.Sub(q.Mul(f)).Round(0)
	if r.GreaterThanOrEqual(f) {
		q = q.Add(decimal.NewFromInt(1))
		r = decimal.Zero
	}

	if !total.IsNegative() {
		return Amount{Whole: q, Sub: r}
	}
	if r.IsZero() {
		return Amount{Whole: q.Neg(), Sub: decimal.Zero}
	}
	return Amount{Whole: q.Add(decimal.NewFromInt(1)).Neg(), Sub: f.Sub(r)}
}

// Normalize brings an amount into range by re-splitting its total, so the
// sub-unit component is rounded and carried exactly as Split does.
func (s Scale) Normalize(a Amount) Amount {
	if !s.Paired() {
		return Amount{Whole: a.Whole.Add(a.Sub), Sub: decimal.Zero}
	}
	return s.Split(s.Total(a))
}
