package types

import (
	"github.com/shopspring/decimal"
)

// EmitPlaces is the number of decimal places quantities keep when they leave the engine.
const EmitPlaces = 2

// Qty converts a float coming from a source collection into an exact decimal.
func Qty(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Emit rounds q half away from zero to EmitPlaces and returns it as float64.
// Negative zero is normalized so emitted records compare byte-identical.
func Emit(q decimal.Decimal) float64 {
	f := q.Round(EmitPlaces).InexactFloat64()
	if f == 0 {
		return 0
	}
	return f
}
