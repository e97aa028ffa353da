package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/conversion"
	"outletstock/internal/domain/documents/sales"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/internal/domain/documents/transfer"
)

// busySnapshot generates a month of activity at Main. Quantities are whole
// sub-units so totals stay exact.
func busySnapshot(seed int64) *Snapshot {
	rng := rand.New(rand.NewSource(seed))
	snap := &Snapshot{Catalog: testCatalog()}
	start := types.MustDate("2024-07-01")

	for i := 0; i < 31; i++ {
		d := start.AddDays(i)
		ds := d.String()

		snap.Transfers = append(snap.Transfers,
			approved("cake", kitchenOutlet, mainOutlet, ds, float64(rng.Intn(30))/10),
			approved("tea", kitchenOutlet, mainOutlet, ds, float64(rng.Intn(5))),
		)
		snap.Sales = append(snap.Sales, salesReport(ds,
			sales.Item{ProductID: "cake", SoldWhole: float64(rng.Intn(2)), SourceUnit: sales.SourceWhole},
			sales.Item{ProductID: "cake-slice", SoldSlices: float64(rng.Intn(15)), SourceUnit: sales.SourceSlices},
			sales.Item{ProductID: "tea", SoldWhole: float64(rng.Intn(4))},
		))

		if i%4 == 0 {
			c := userCheck(mainOutlet, ds,
				stockcheck.Count{ProductID: "cake", Quantity: float64(rng.Intn(5)), Wastage: float64(rng.Intn(2))},
				stockcheck.Count{ProductID: "cake-slice", Quantity: float64(rng.Intn(25)), Wastage: float64(rng.Intn(12))},
				stockcheck.Count{ProductID: "tea", Quantity: float64(rng.Intn(10))},
			)
			if i%8 == 0 {
				for j := range c.Counts {
					c.Counts[j].ManuallyEditedDate = d
				}
			}
			snap.Checks = append(snap.Checks, c)
		}
	}
	return snap
}

func denseDays(t *testing.T, snap *Snapshot, r Request, productID string) (*Sources, subject, []dayLedger) {
	t.Helper()
	ctx := context.Background()
	outlet, ok := snap.Catalog.Outlet(r.Outlet)
	require.True(t, ok)

	src := NewSources(ctx, snap, outlet)
	resolver := conversion.NewResolver(ctx, snap.Catalog.Conversions)
	for _, p := range snap.Catalog.Products {
		if p.ID == productID {
			subj := newSubject(p, resolver)
			return src, subj, sequence(&dayBuilder{ctx: ctx, src: src, subj: subj}, r.Dates())
		}
	}
	t.Fatalf("product %s not in catalog", productID)
	return nil, subject{}, nil
}

func TestProperty_Continuity(t *testing.T) {
	snap := busySnapshot(1)
	r := req(mainOutlet, "2024-07-31", ModeLong)

	for _, pid := range []string{"cake", "tea"} {
		src, subj, days := denseDays(t, snap, r, pid)
		checked := 0
		for i := 0; i < len(days)-1; i++ {
			if src.Check(days[i].date) != nil {
				continue
			}
			checked++
			assert.True(t,
				subj.scale.Total(days[i+1].opening).Equal(subj.scale.Total(days[i].current)),
				"%s: opening(%s) != current(%s)", pid, days[i+1].date, days[i].date)
		}
		assert.Greater(t, checked, 10)
	}
}

func TestProperty_ManualEditCarriesForward(t *testing.T) {
	snap := busySnapshot(2)
	r := req(mainOutlet, "2024-07-31", ModeLong)

	_, subj, days := denseDays(t, snap, r, "cake")
	for i := 0; i < len(days)-1; i++ {
		if days[i].manuallyEditedDate.IsZero() {
			continue
		}
		assert.True(t, subj.scale.Total(days[i+1].opening).Equal(subj.scale.Total(days[i].current)))
	}
}

// withFractionalCounts adds fractional sub-unit counts and wastage to every
// stock check of snap.
func withFractionalCounts(snap *Snapshot, seed int64) *Snapshot {
	rng := rand.New(rand.NewSource(seed))
	for _, c := range snap.Checks {
		for j := range c.Counts {
			if c.Counts[j].ProductID != "cake-slice" {
				continue
			}
			c.Counts[j].Quantity += float64(rng.Intn(1000)) / 1000
			c.Counts[j].Wastage += float64(rng.Intn(1000)) / 1000
		}
	}
	return snap
}

func TestProperty_UnitConservation(t *testing.T) {
	var snaps []*Snapshot
	for seed := int64(1); seed <= 5; seed++ {
		snaps = append(snaps, busySnapshot(seed), withFractionalCounts(busySnapshot(seed), seed))
	}

	for i, snap := range snaps {
		seed := i/2 + 1
		l := compute(t, snap, req(mainOutlet, "2024-07-31", ModeLong))

		for _, h := range l.Products {
			for _, rec := range h.Records {
				for name, q := range map[string]Quantity{
					"opening": rec.Opening, "received": rec.Received, "wastage": rec.Wastage,
					"sold": rec.Sold, "current": rec.Current, "discrepancy": rec.Discrepancy,
				} {
					msg := fmt.Sprintf("seed %d %s %s %s: %+v", seed, h.ProductID, rec.Date, name, q)
					assert.GreaterOrEqual(t, q.Sub, 0.0, msg)
					if h.Factor > 0 {
						assert.Less(t, q.Sub, float64(h.Factor), msg)
					} else {
						assert.Zero(t, q.Sub, msg)
					}
				}
			}
		}
	}
}

func TestProperty_DiscrepancyIdentity(t *testing.T) {
	snap := busySnapshot(3)
	r := req(mainOutlet, "2024-07-31", ModeLong)

	for _, pid := range []string{"cake", "tea"} {
		_, subj, days := denseDays(t, snap, r, pid)
		last := len(days) - 1
		for i := 0; i < last; i++ {
			want := subj.scale.Total(days[i+1].opening).Sub(subj.scale.Total(days[i].current))
			got := subj.scale.Total(days[i].discrepancy)
			assert.True(t, want.Equal(got), "%s %s: want %s got %s", pid, days[i].date, want, got)
		}
		assert.True(t, days[last].discrepancy.Zero())
	}
}

func TestProperty_Idempotence(t *testing.T) {
	snap := busySnapshot(4)
	r := req(mainOutlet, "2024-07-31", ModeLong)

	first, err := json.Marshal(compute(t, snap, r))
	require.NoError(t, err)
	second, err := json.Marshal(compute(t, snap, r))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestProperty_SubUnitTotalsExact(t *testing.T) {
	snap := &Snapshot{
		Catalog: testCatalog(),
		Transfers: []transfer.Request{
			approved("cake", kitchenOutlet, mainOutlet, "2024-08-01", 0.1),
			approved("cake", kitchenOutlet, mainOutlet, "2024-08-01", 0.2),
		},
	}
	l := compute(t, snap, req(mainOutlet, "2024-08-01", ModeShort))
	assert.Equal(t, Quantity{Whole: 0, Sub: 3}, recordOf(t, l, "cake", "2024-08-01").Received)
}
