package ledger

import (
	"github.com/shopspring/decimal"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/conversion"
	"outletstock/internal/domain/documents/legacy"
	"outletstock/internal/domain/documents/sales"
	"outletstock/pkg/logger"
)

// provider reads one source of a quantity as a sub-unit total.
type provider struct {
	name string
	get  func() (decimal.Decimal, bool)
}

// firstPresent queries providers in order and returns the first present,
// non-zero total together with the name of its provider.
func firstPresent(providers ...provider) (decimal.Decimal, string, bool) {
	for _, p := range providers {
		if v, ok := p.get(); ok && !v.IsZero() {
			return v, p.name, true
		}
	}
	return decimal.Zero, "", false
}

func (b *dayBuilder) sold(d types.Date) conversion.Amount {
	if b.src.Outlet().IsProduction() {
		return b.transferred(b.src.TransfersOut(d))
	}

	var total decimal.Decimal
	switch {
	case b.subj.product.ConsumedBySales():
		total = b.soldRaw(d)
	case b.subj.paired():
		total = b.soldPaired(d)
	default:
		total = b.soldStandalone(d)
	}
	return b.subj.scale.Split(total)
}

func (b *dayBuilder) soldRaw(d types.Date) decimal.Decimal {
	total, source, _ := firstPresent(
		provider{name: "sales_report", get: func() (decimal.Decimal, bool) {
			r := b.src.Sales(d)
			if r == nil {
				return decimal.Zero, false
			}
			sum, found := decimal.Zero, false
			for _, id := range b.subj.ids() {
				if rc, ok := r.Raw(id); ok {
					sum = sum.Add(b.unitTotal(id, types.Qty(rc.ConsumedWhole), types.Qty(rc.ConsumedSlices)))
					found = true
				}
			}
			return sum, found
		}},
		provider{name: "legacy", get: func() (decimal.Decimal, bool) {
			return b.legacyRaw(d)
		}},
	)
	b.logFallback(d, source, "raw_consumption")
	return total
}

// legacyRaw reads raw consumption from the reconciliation history. Lines of
// an undeterminable shape contribute nothing.
func (b *dayBuilder) legacyRaw(d types.Date) (decimal.Decimal, bool) {
	e := b.src.Legacy(d)
	if e == nil {
		return decimal.Zero, false
	}

	sum, found := decimal.Zero, false
	for _, id := range b.subj.ids() {
		rc, ok := e.Raw(id)
		if !ok {
			continue
		}
		switch rc.Shape() {
		case legacy.ShapeSplit:
			sum = sum.Add(b.unitTotal(id, deref(rc.ConsumedWhole), deref(rc.ConsumedSub)))
			found = true
		case legacy.ShapeAggregate:
			sum = sum.Add(b.unitTotal(id, deref(rc.Consumed), decimal.Zero))
			found = true
		default:
			logger.Warn(b.ctx, "ambiguous legacy raw consumption shape",
				"outlet", b.src.Outlet().Name,
				"date", d,
				"product_id", id,
				"entry_id", e.ID,
			)
		}
	}
	return sum, found
}

func deref(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return types.Qty(*f)
}

func (b *dayBuilder) soldStandalone(d types.Date) decimal.Decimal {
	id := b.subj.wholeID()
	total, source, _ := firstPresent(
		provider{name: "sales_report", get: func() (decimal.Decimal, bool) {
			r := b.src.Sales(d)
			if r == nil {
				return decimal.Zero, false
			}
			items := r.ItemsFor(id)
			sum := decimal.Zero
			for _, it := range items {
				sum = sum.Add(types.Qty(it.SoldWhole))
			}
			return sum, len(items) > 0
		}},
		provider{name: "legacy", get: func() (decimal.Decimal, bool) {
			return b.legacySold(d)
		}},
	)
	b.logFallback(d, source, "sales")
	return total
}

func (b *dayBuilder) soldPaired(d types.Date) decimal.Decimal {
	modern, modernOK := b.pairedSales(d)
	old, oldOK := b.legacySold(d)
	oldOK = oldOK && !old.IsZero()

	switch {
	case modernOK && oldOK:
		return maxOfSources(b, d, modern, old)
	case modernOK:
		return modern
	case oldOK:
		b.logFallback(d, "legacy", "sales")
		return old
	}
	return decimal.Zero
}

// pairedSales sums the sales report entries filed under either side of the
// pair. ok is false when the report has nothing for the pair.
func (b *dayBuilder) pairedSales(d types.Date) (decimal.Decimal, bool) {
	r := b.src.Sales(d)
	if r == nil {
		return decimal.Zero, false
	}
	items := r.ItemsFor(b.subj.ids()...)
	if len(items) == 0 {
		return decimal.Zero, false
	}

	tagged := false
	for _, it := range items {
		if it.Tagged() {
			tagged = true
			break
		}
	}

	var total decimal.Decimal
	if tagged {
		total = b.taggedSales(items)
	} else {
		total = b.untaggedSales(d, items)
	}
	return total, !total.IsZero()
}

// taggedSales sums the whole and slices columns. Aggregate columns count only
// when no split column exists.
func (b *dayBuilder) taggedSales(items []sales.Item) decimal.Decimal {
	split, agg := decimal.Zero, decimal.Zero
	hasSplit := false
	for _, it := range items {
		v := b.unitTotal(it.ProductID, types.Qty(it.SoldWhole), types.Qty(it.SoldSlices))
		switch it.SourceUnit {
		case sales.SourceWhole, sales.SourceSlices:
			split = split.Add(v)
			hasSplit = true
		default:
			agg = agg.Add(v)
		}
	}
	if hasSplit {
		return split
	}
	return agg
}

// untaggedSales handles the oldest exports, which sometimes stored the same
// figures under both product ids of a pair.
func (b *dayBuilder) untaggedSales(d types.Date, items []sales.Item) decimal.Decimal {
	var whole, sub []sales.Item
	for _, it := range items {
		if it.ProductID == b.subj.wholeID() {
			whole = append(whole, it)
		} else {
			sub = append(sub, it)
		}
	}

	if len(whole) > 0 && sameFigures(whole, sub) {
		logger.Info(b.ctx, "duplicate sales entries collapsed",
			"outlet", b.src.Outlet().Name,
			"date", d,
			"product_id", b.subj.wholeID(),
			"sub_product_id", b.subj.subID(),
		)
		items = whole
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(b.unitTotal(it.ProductID, types.Qty(it.SoldWhole), types.Qty(it.SoldSlices)))
	}
	return total
}

func sameFigures(a, b []sales.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].SoldWhole != b[i].SoldWhole || a[i].SoldSlices != b[i].SoldSlices {
			return false
		}
	}
	return true
}

func (b *dayBuilder) legacySold(d types.Date) (decimal.Decimal, bool) {
	e := b.src.Legacy(d)
	if e == nil {
		return decimal.Zero, false
	}
	sum, found := decimal.Zero, false
	for _, id := range b.subj.ids() {
		if v, ok := e.Sold(id); ok {
			sum = sum.Add(b.unitTotal(id, types.Qty(v), decimal.Zero))
			found = true
		}
	}
	return sum, found
}

// maxOfSources prefers the reconciliation history total when it is strictly
// larger than the sales report total. It applies to paired sales at sales
// outlets only; every other quantity takes the first present source.
func maxOfSources(b *dayBuilder, d types.Date, modern, old decimal.Decimal) decimal.Decimal {
	if !old.GreaterThan(modern) {
		return modern
	}
	logger.Info(b.ctx, "maximum-of-sources applied",
		"outlet", b.src.Outlet().Name,
		"date", d,
		"product_id", b.subj.wholeID(),
		"sales_report", modern.String(),
		"legacy", old.String(),
	)
	return old
}

func (b *dayBuilder) logFallback(d types.Date, source, quantity string) {
	if source != "legacy" {
		return
	}
	logger.Debug(b.ctx, "legacy fallback used",
		"outlet", b.src.Outlet().Name,
		"date", d,
		"product_id", b.subj.wholeID(),
		"quantity", quantity,
	)
}
