package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/conversion"
	"outletstock/internal/domain/documents/stockcheck"
)

// dayLedger is the unrounded ledger of one subject on one date.
type dayLedger struct {
	date        types.Date
	opening     conversion.Amount
	received    conversion.Amount
	wastage     conversion.Amount
	sold        conversion.Amount
	current     conversion.Amount
	discrepancy conversion.Amount

	manuallyEditedDate   types.Date
	replaceInventoryDate types.Date
}

func (l dayLedger) record() DailyInventoryRecord {
	return DailyInventoryRecord{
		Date:                 l.date,
		Opening:              emit(l.opening),
		Received:             emit(l.received),
		Wastage:              emit(l.wastage),
		Sold:                 emit(l.sold),
		Current:              emit(l.current),
		Discrepancy:          emit(l.discrepancy),
		ManuallyEditedDate:   l.manuallyEditedDate,
		ReplaceInventoryDate: l.replaceInventoryDate,
	}
}

// dayBuilder computes the ledger of one subject at one outlet, one date at a time.
type dayBuilder struct {
	ctx  context.Context
	src  *Sources
	subj subject
}

var zeroAmount = conversion.Amount{Whole: decimal.Zero, Sub: decimal.Zero}

// build computes date d. carried is the previous day's closing when d-1 is
// inside the window, nil otherwise.
func (b *dayBuilder) build(d types.Date, carried *conversion.Amount) dayLedger {
	l := dayLedger{date: d}
	scale := b.subj.scale

	l.opening = b.opening(d, carried)
	l.received = b.received(d)
	l.wastage = b.wastage(d)
	l.sold = b.sold(d)

	check := b.src.Check(d)
	switch {
	case check != nil && check.ReplaceAllInventory:
		l.current, _ = b.counted(check)
		l.replaceInventoryDate = d
	case check != nil && b.editedOn(check, d):
		l.current, _ = b.counted(check)
		l.manuallyEditedDate = d
	default:
		total := scale.Total(l.opening).
			Add(scale.Total(l.received)).
			Sub(scale.Total(l.sold))
		l.current = scale.Split(total)
	}

	l.discrepancy = zeroAmount
	return l
}

// opening is the quantity counted in the latest user check of d-1. Without
// such a count the previous day's computed closing carries forward.
func (b *dayBuilder) opening(d types.Date, carried *conversion.Amount) conversion.Amount {
	if amt, ok := b.counted(b.src.Check(d.AddDays(-1))); ok {
		return amt
	}
	if carried != nil {
		return *carried
	}
	return zeroAmount
}

// counted reads the quantity of the subject's counts in check. Missing sides
// count as zero; ok is false when the check has no count for either side.
func (b *dayBuilder) counted(check *stockcheck.StockCheck) (amt conversion.Amount, ok bool) {
	amt = zeroAmount
	if check == nil {
		return amt, false
	}
	if cnt, found := check.Count(b.subj.wholeID()); found {
		amt.Whole = types.Qty(cnt.Quantity)
		ok = true
	}
	if sub := b.subj.subID(); sub != "" {
		if cnt, found := check.Count(sub); found {
			amt.Sub = types.Qty(cnt.Quantity)
			ok = true
		}
	}
	return b.subj.scale.Normalize(amt), ok
}

func (b *dayBuilder) editedOn(check *stockcheck.StockCheck, d types.Date) bool {
	for _, id := range b.subj.ids() {
		if cnt, ok := check.Count(id); ok && cnt.EditedOn(d) {
			return true
		}
	}
	return false
}

// wastage keeps the whole-side and sub-unit-side figures on their own sides.
func (b *dayBuilder) wastage(d types.Date) conversion.Amount {
	check := b.src.Check(d)
	if check == nil {
		return zeroAmount
	}
	amt := zeroAmount
	if cnt, ok := check.Count(b.subj.wholeID()); ok {
		amt.Whole = types.Qty(cnt.Wastage)
	}
	if sub := b.subj.subID(); sub != "" {
		if cnt, ok := check.Count(sub); ok {
			amt.Sub = types.Qty(cnt.Wastage)
		}
	}
	return b.subj.scale.Normalize(amt)
}

// unitTotal converts a (whole, sub) figure filed under productID into the
// subject's sub-unit total. Figures filed under the sub-unit product are
// already in sub-units.
func (b *dayBuilder) unitTotal(productID string, whole, sub decimal.Decimal) decimal.Decimal {
	if b.subj.paired() && productID == b.subj.subID() {
		return whole.Add(sub)
	}
	return b.subj.scale.Total(conversion.Amount{Whole: whole, Sub: sub})
}
