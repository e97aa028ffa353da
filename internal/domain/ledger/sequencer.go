package ledger

import (
	"outletstock/internal/core/types"
	"outletstock/internal/domain/conversion"
)

// sequence folds the day builder over dates in ascending order, threading
// each day's closing into the next, then derives discrepancies in a second
// pass. The returned slice has one entry per date.
func sequence(b *dayBuilder, dates []types.Date) []dayLedger {
	days := make([]dayLedger, len(dates))

	var carried *conversion.Amount
	for i, d := range dates {
		days[i] = b.build(d, carried)
		closing := days[i].current
		carried = &closing
	}

	scale := b.subj.scale
	for i := 0; i < len(days)-1; i++ {
		diff := scale.Total(days[i+1].opening).Sub(scale.Total(days[i].current))
		days[i].discrepancy = scale.Split(diff)
	}

	return days
}

// sparse converts a day sequence to records, dropping days without
// information.
func sparse(days []dayLedger) []DailyInventoryRecord {
	out := make([]DailyInventoryRecord, 0, len(days))
	for _, l := range days {
		if r := l.record(); !r.empty() {
			out = append(out, r)
		}
	}
	return out
}
