package ledger

import (
	"github.com/shopspring/decimal"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/conversion"
	"outletstock/internal/domain/documents/transfer"
)

func (b *dayBuilder) received(d types.Date) conversion.Amount {
	if b.src.Outlet().IsProduction() {
		return b.produced(d)
	}
	return b.transferred(b.src.TransfersIn(d))
}

// produced adds the production report quantity and the Prods.Req delta.
func (b *dayBuilder) produced(d types.Date) conversion.Amount {
	total := decimal.Zero

	if r := b.src.Production(d); r != nil {
		if it, ok := r.Item(b.subj.wholeID()); ok {
			total = total.Add(b.unitTotal(it.ProductID, types.Qty(it.QuantityWhole), types.Qty(it.QuantitySlices)))
		}
	}

	if delta, ok := b.prodsReq(d); ok {
		total = total.Add(delta)
	}

	return b.subj.scale.Split(total)
}

// prodsReq returns the most recent Prods.Req delta from the reconciliation
// history, then from the production report itself.
func (b *dayBuilder) prodsReq(d types.Date) (decimal.Decimal, bool) {
	total, _, ok := firstPresent(
		provider{name: "legacy", get: func() (decimal.Decimal, bool) {
			for _, id := range b.subj.ids() {
				if u, ok := b.src.LegacyProdsReq(d, id); ok {
					return b.unitTotal(id, types.Qty(u.Whole), types.Qty(u.Sub)), true
				}
			}
			return decimal.Zero, false
		}},
		provider{name: "production_report", get: func() (decimal.Decimal, bool) {
			r := b.src.Production(d)
			if r == nil {
				return decimal.Zero, false
			}
			for _, id := range b.subj.ids() {
				if u, ok := r.LatestProdsReq(id); ok {
					return b.unitTotal(id, types.Qty(u.Whole), types.Qty(u.Sub)), true
				}
			}
			return decimal.Zero, false
		}},
	)
	return total, ok
}

// transferred sums the subject's approved transfers. Quantities are whole-unit
// equivalents whichever side of the pair they were filed under.
func (b *dayBuilder) transferred(list []transfer.Request) conversion.Amount {
	total := decimal.Zero
	for _, t := range list {
		if !b.subj.owns(t.ProductID) {
			continue
		}
		total = total.Add(b.subj.scale.FromWhole(types.Qty(t.Quantity)))
	}
	return b.subj.scale.Split(total)
}
