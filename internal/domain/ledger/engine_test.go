package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/documents/legacy"
	"outletstock/internal/domain/documents/production"
	"outletstock/internal/domain/documents/sales"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/internal/domain/documents/transfer"
)

func compute(t *testing.T, snap *Snapshot, r Request) *Ledger {
	t.Helper()
	l, err := NewEngine(nil).Compute(context.Background(), snap, r)
	require.NoError(t, err)
	return l
}

func recordOf(t *testing.T, l *Ledger, productID, date string) DailyInventoryRecord {
	t.Helper()
	h, ok := l.Product(productID)
	require.True(t, ok, "no history for %s", productID)
	r, ok := h.Record(types.MustDate(date))
	require.True(t, ok, "no record for %s on %s", productID, date)
	return r
}

func TestCompute_PairedFormulaAndDiscrepancy(t *testing.T) {
	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks: []*stockcheck.StockCheck{
			userCheck(mainOutlet, "2024-01-01", qty("cake", 3), qty("cake-slice", 4)),
			userCheck(mainOutlet, "2024-01-02", qty("cake", 2), qty("cake-slice", 0)),
		},
		Transfers: []transfer.Request{
			approved("cake", kitchenOutlet, mainOutlet, "2024-01-02", 1),
		},
		Sales: []*sales.Report{
			salesReport("2024-01-02", sales.Item{ProductID: "cake-slice", SoldSlices: 8, SourceUnit: sales.SourceSlices}),
		},
	}

	l := compute(t, snap, req(mainOutlet, "2024-01-03", ModeShort))

	r := recordOf(t, l, "cake", "2024-01-02")
	assert.Equal(t, Quantity{Whole: 3, Sub: 4}, r.Opening)
	assert.Equal(t, Quantity{Whole: 1, Sub: 0}, r.Received)
	assert.Equal(t, Quantity{Whole: 0, Sub: 8}, r.Sold)
	assert.Equal(t, Quantity{Whole: 3, Sub: 6}, r.Current)
	assert.Equal(t, Quantity{Whole: -2, Sub: 4}, r.Discrepancy)
	assert.True(t, r.Wastage.IsZero())

	next := recordOf(t, l, "cake", "2024-01-03")
	assert.Equal(t, Quantity{Whole: 2, Sub: 0}, next.Opening)
	assert.Equal(t, Quantity{Whole: 2, Sub: 0}, next.Current)
	assert.True(t, next.Discrepancy.IsZero(), "last day has no discrepancy")

	h, _ := l.Product("cake")
	assert.Equal(t, "cake-slice", h.SubProductID)
	assert.Equal(t, 10, h.Factor)
	_, ok := h.Record(types.MustDate("2023-12-28"))
	assert.False(t, ok, "days without activity are not emitted")
}

func TestCompute_FractionalSubUnitCountCarriesIntoWhole(t *testing.T) {
	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks: []*stockcheck.StockCheck{
			userCheck(mainOutlet, "2024-10-01", qty("cake", 3), qty("cake-slice", 9.996)),
		},
	}

	l := compute(t, snap, req(mainOutlet, "2024-10-02", ModeShort))

	r := recordOf(t, l, "cake", "2024-10-02")
	assert.Equal(t, Quantity{Whole: 4, Sub: 0}, r.Opening)
	assert.Equal(t, Quantity{Whole: 4, Sub: 0}, r.Current)
}

func TestCompute_StandaloneWastageNotSubtracted(t *testing.T) {
	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks: []*stockcheck.StockCheck{
			userCheck(mainOutlet, "2024-01-01", qty("flour", 5)),
			userCheck(mainOutlet, "2024-01-02", stockcheck.Count{ProductID: "flour", Quantity: 3, Wastage: 1}),
		},
		Sales: []*sales.Report{{
			ID: "s1", Outlet: mainOutlet, Date: types.MustDate("2024-01-02"),
			RawConsumption: []sales.RawConsumption{{RawProductID: "flour", ConsumedWhole: 2}},
		}},
	}

	l := compute(t, snap, req(mainOutlet, "2024-01-02", ModeShort))
	r := recordOf(t, l, "flour", "2024-01-02")

	assert.Equal(t, Quantity{Whole: 5}, r.Opening)
	assert.Equal(t, Quantity{Whole: 1}, r.Wastage)
	assert.Equal(t, Quantity{Whole: 2}, r.Sold)
	assert.Equal(t, Quantity{Whole: 3}, r.Current)
}

func TestCompute_ReplaceAll(t *testing.T) {
	replace := userCheck(mainOutlet, "2024-02-10", qty("cake", 12), qty("cake-slice", 0))
	replace.ReplaceAllInventory = true

	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks: []*stockcheck.StockCheck{
			userCheck(mainOutlet, "2024-02-09", qty("cake", 1), qty("tea", 4)),
			replace,
		},
		Sales: []*sales.Report{
			salesReport("2024-02-10", sales.Item{ProductID: "cake", SoldWhole: 1, SourceUnit: sales.SourceWhole}),
		},
	}

	l := compute(t, snap, req(mainOutlet, "2024-02-11", ModeShort))

	r := recordOf(t, l, "cake", "2024-02-10")
	assert.Equal(t, Quantity{Whole: 1}, r.Opening, "opening still computed for display")
	assert.Equal(t, Quantity{Whole: 1}, r.Sold)
	assert.Equal(t, Quantity{Whole: 12}, r.Current)
	assert.Equal(t, types.MustDate("2024-02-10"), r.ReplaceInventoryDate)
	assert.True(t, r.ManuallyEditedDate.IsZero())

	next := recordOf(t, l, "cake", "2024-02-11")
	assert.Equal(t, Quantity{Whole: 12}, next.Opening)

	// Products missing from a replace-all check are replaced by zero.
	tea := recordOf(t, l, "tea", "2024-02-10")
	assert.Equal(t, Quantity{Whole: 4}, tea.Opening)
	assert.Equal(t, Quantity{}, tea.Current)
}

func TestCompute_ManualEditAppliesOnlyOnItsDate(t *testing.T) {
	stale := stockcheck.Count{ProductID: "tea", Quantity: 9, ManuallyEditedDate: types.MustDate("2024-03-01")}
	fresh := stockcheck.Count{ProductID: "tea", Quantity: 9, ManuallyEditedDate: types.MustDate("2024-03-02")}

	tests := []struct {
		name       string
		count      stockcheck.Count
		wantCur    Quantity
		wantEdited types.Date
	}{
		{"edit stamped for another date", stale, Quantity{Whole: 4}, ""},
		{"edit stamped for this date", fresh, Quantity{Whole: 9}, types.MustDate("2024-03-02")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{
				Catalog: testCatalog(),
				Checks: []*stockcheck.StockCheck{
					userCheck(mainOutlet, "2024-03-01", qty("tea", 4)),
					userCheck(mainOutlet, "2024-03-02", tt.count),
				},
			}
			l := compute(t, snap, req(mainOutlet, "2024-03-02", ModeShort))
			r := recordOf(t, l, "tea", "2024-03-02")
			assert.Equal(t, tt.wantCur, r.Current)
			assert.Equal(t, tt.wantEdited, r.ManuallyEditedDate)
		})
	}
}

func TestCompute_ZeroOverrideRecordIsEmitted(t *testing.T) {
	edit := stockcheck.Count{ProductID: "tea", Quantity: 0, ManuallyEditedDate: types.MustDate("2024-03-02")}
	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks: []*stockcheck.StockCheck{
			userCheck(mainOutlet, "2024-03-02", edit, qty("flour", 0)),
		},
	}

	l := compute(t, snap, req(mainOutlet, "2024-03-02", ModeShort))

	r := recordOf(t, l, "tea", "2024-03-02")
	assert.Equal(t, types.MustDate("2024-03-02"), r.ManuallyEditedDate)
	assert.True(t, r.Current.IsZero())
	assert.True(t, r.Opening.IsZero())

	if h, ok := l.Product("flour"); ok {
		_, found := h.Record(types.MustDate("2024-03-02"))
		assert.False(t, found, "all-zero record without an override date is dropped")
	}
}

func TestCompute_ProductionOutlet(t *testing.T) {
	t0 := clock
	entry := legacyEntry(kitchenOutlet, "2024-03-05")
	entry.ProdsReqUpdates = []legacy.ProdsReqUpdate{
		{ProductID: "cake", Whole: 3, UpdatedAt: t0},
		{ProductID: "cake", Whole: 1, UpdatedAt: t0.Add(1)},
	}
	rejected := approved("cake", kitchenOutlet, mainOutlet, "2024-03-05", 10)
	rejected.Status = transfer.StatusRejected
	pending := approved("cake", kitchenOutlet, mainOutlet, "2024-03-05", 7)
	pending.Status = transfer.StatusPending

	snap := &Snapshot{
		Catalog: testCatalog(),
		Production: []*production.Report{
			productionReport("2024-03-05", production.Item{ProductID: "cake", QuantityWhole: 4, QuantitySlices: 5}),
		},
		Legacy: []*legacy.Entry{entry},
		Transfers: []transfer.Request{
			approved("cake", kitchenOutlet, mainOutlet, "2024-03-05", 2.5),
			rejected,
			pending,
		},
	}

	l := compute(t, snap, req(kitchenOutlet, "2024-03-05", ModeShort))
	r := recordOf(t, l, "cake", "2024-03-05")

	assert.Equal(t, Quantity{Whole: 5, Sub: 5}, r.Received, "production plus latest Prods.Req delta")
	assert.Equal(t, Quantity{Whole: 2, Sub: 5}, r.Sold)
	assert.Equal(t, Quantity{Whole: 3, Sub: 0}, r.Current)
}

func TestCompute_ProductionReportProdsReqWhenNoLegacy(t *testing.T) {
	rep := productionReport("2024-03-05", production.Item{ProductID: "tea", QuantityWhole: 4})
	rep.ProdsReq = []production.ProdsReqDelta{{ProductID: "tea", Whole: 2}}

	snap := &Snapshot{Catalog: testCatalog(), Production: []*production.Report{rep}}
	l := compute(t, snap, req(kitchenOutlet, "2024-03-05", ModeShort))

	assert.Equal(t, Quantity{Whole: 6}, recordOf(t, l, "tea", "2024-03-05").Received)
}

func TestCompute_SalesOutletReceivesEitherSide(t *testing.T) {
	snap := &Snapshot{
		Catalog: testCatalog(),
		Transfers: []transfer.Request{
			approved("cake", kitchenOutlet, mainOutlet, "2024-04-01", 1),
			approved("cake-slice", kitchenOutlet, mainOutlet, "2024-04-01", 0.5),
			approved("cake", kitchenOutlet, "Nowhere", "2024-04-01", 3),
		},
	}
	l := compute(t, snap, req(mainOutlet, "2024-04-01", ModeShort))
	r := recordOf(t, l, "cake", "2024-04-01")

	assert.Equal(t, Quantity{Whole: 1, Sub: 5}, r.Received)
	assert.Equal(t, Quantity{Whole: 1, Sub: 5}, r.Current)
}

func TestCompute_RawConsumptionFallback(t *testing.T) {
	aggregate := legacyEntry(mainOutlet, "2024-04-02")
	aggregate.RawConsumption = []legacy.RawConsumption{
		{RawProductID: "butter", Consumed: f64(1.5)},
		{RawProductID: "flour", ConsumedWhole: f64(2), ConsumedSub: f64(0)},
	}

	ambiguous := legacyEntry(mainOutlet, "2024-04-03")
	ambiguous.RawConsumption = []legacy.RawConsumption{
		{RawProductID: "butter", Consumed: f64(1), ConsumedWhole: f64(1)},
	}

	modern := &sales.Report{
		ID: "s", Outlet: mainOutlet, Date: types.MustDate("2024-04-03"),
		RawConsumption: []sales.RawConsumption{{RawProductID: "flour", ConsumedWhole: 1}},
	}
	shadowed := legacyEntry(mainOutlet, "2024-04-03")
	shadowed.ID = "l-shadowed"
	shadowed.UpdatedAt = clock.Add(-1)
	shadowed.RawConsumption = []legacy.RawConsumption{{RawProductID: "flour", Consumed: f64(9)}}

	snap := &Snapshot{
		Catalog: testCatalog(),
		Sales:   []*sales.Report{modern},
		Legacy:  []*legacy.Entry{aggregate, ambiguous, shadowed},
	}
	ambiguous.UpdatedAt = clock

	l := compute(t, snap, req(mainOutlet, "2024-04-03", ModeShort))

	assert.Equal(t, Quantity{Whole: 1, Sub: 4}, recordOf(t, l, "butter", "2024-04-02").Sold,
		"aggregate quantity split through the factor")
	assert.Equal(t, Quantity{Whole: 2}, recordOf(t, l, "flour", "2024-04-02").Sold)

	butter, _ := l.Product("butter")
	if r, ok := butter.Record(types.MustDate("2024-04-03")); ok {
		assert.True(t, r.Sold.IsZero(), "ambiguous shape contributes nothing")
	}
	assert.Equal(t, Quantity{Whole: 1}, recordOf(t, l, "flour", "2024-04-03").Sold,
		"sales report wins over legacy")
}

func TestCompute_PairedSalesSources(t *testing.T) {
	tests := []struct {
		name   string
		items  []sales.Item
		legacy []legacy.SalesEntry
		want   Quantity
	}{
		{
			name: "split columns summed",
			items: []sales.Item{
				{ProductID: "cake", SoldWhole: 1, SourceUnit: sales.SourceWhole},
				{ProductID: "cake", SoldSlices: 3, SourceUnit: sales.SourceSlices},
			},
			want: Quantity{Whole: 1, Sub: 3},
		},
		{
			name: "aggregate ignored when split exists",
			items: []sales.Item{
				{ProductID: "cake", SoldWhole: 1, SourceUnit: sales.SourceWhole},
				{ProductID: "cake", SoldWhole: 3, SourceUnit: sales.SourceAggregate},
			},
			want: Quantity{Whole: 1},
		},
		{
			name: "aggregate alone",
			items: []sales.Item{
				{ProductID: "cake", SoldWhole: 2, SoldSlices: 3, SourceUnit: sales.SourceAggregate},
			},
			want: Quantity{Whole: 2, Sub: 3},
		},
		{
			name: "untagged duplicates counted once",
			items: []sales.Item{
				{ProductID: "cake", SoldWhole: 2},
				{ProductID: "cake-slice", SoldWhole: 2},
			},
			want: Quantity{Whole: 2},
		},
		{
			name: "untagged distinct entries summed",
			items: []sales.Item{
				{ProductID: "cake", SoldWhole: 1},
				{ProductID: "cake-slice", SoldWhole: 14},
			},
			want: Quantity{Whole: 2, Sub: 4},
		},
		{
			name:   "larger legacy total wins",
			items:  []sales.Item{{ProductID: "cake", SoldWhole: 1, SourceUnit: sales.SourceWhole}},
			legacy: []legacy.SalesEntry{{ProductID: "cake", Sold: 2}},
			want:   Quantity{Whole: 2},
		},
		{
			name:   "smaller legacy total ignored",
			items:  []sales.Item{{ProductID: "cake", SoldWhole: 1, SourceUnit: sales.SourceWhole}},
			legacy: []legacy.SalesEntry{{ProductID: "cake-slice", Sold: 5}},
			want:   Quantity{Whole: 1},
		},
		{
			name:   "legacy used without report",
			legacy: []legacy.SalesEntry{{ProductID: "cake", Sold: 1}, {ProductID: "cake-slice", Sold: 2}},
			want:   Quantity{Whole: 1, Sub: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{Catalog: testCatalog()}
			if tt.items != nil {
				snap.Sales = []*sales.Report{salesReport("2024-05-01", tt.items...)}
			}
			if tt.legacy != nil {
				e := legacyEntry(mainOutlet, "2024-05-01")
				e.SalesData = tt.legacy
				snap.Legacy = []*legacy.Entry{e}
			}

			l := compute(t, snap, req(mainOutlet, "2024-05-01", ModeShort))
			assert.Equal(t, tt.want, recordOf(t, l, "cake", "2024-05-01").Sold)
		})
	}
}

func TestCompute_StandaloneSales(t *testing.T) {
	e := legacyEntry(mainOutlet, "2024-05-02")
	e.SalesData = []legacy.SalesEntry{{ProductID: "tea", Sold: 3}}

	tests := []struct {
		name  string
		sales []*sales.Report
		want  Quantity
	}{
		{"report", []*sales.Report{salesReport("2024-05-02", sales.Item{ProductID: "tea", SoldWhole: 5})}, Quantity{Whole: 5}},
		{"zero report falls back", []*sales.Report{salesReport("2024-05-02", sales.Item{ProductID: "tea"})}, Quantity{Whole: 3}},
		{"no report falls back", nil, Quantity{Whole: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{Catalog: testCatalog(), Sales: tt.sales, Legacy: []*legacy.Entry{e}}
			l := compute(t, snap, req(mainOutlet, "2024-05-02", ModeShort))
			assert.Equal(t, tt.want, recordOf(t, l, "tea", "2024-05-02").Sold)
		})
	}
}

func TestCompute_StockCheckSelection(t *testing.T) {
	auto := userCheck(mainOutlet, "2024-06-01", qty("tea", 50))
	auto.CompletedBy = stockcheck.AutoCompletedBy

	older := userCheck(mainOutlet, "2024-06-01", qty("tea", 1))
	newer := userCheck(mainOutlet, "2024-06-01", qty("tea", 2))

	other := userCheck(kitchenOutlet, "2024-06-01", qty("tea", 70))

	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks:  []*stockcheck.StockCheck{newer, auto, older, other},
	}
	auto.Timestamp = newer.Timestamp.Add(1)

	l := compute(t, snap, req(mainOutlet, "2024-06-02", ModeShort))
	assert.Equal(t, Quantity{Whole: 2}, recordOf(t, l, "tea", "2024-06-02").Opening)
}

func TestCompute_ProductSelection(t *testing.T) {
	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks: []*stockcheck.StockCheck{
			userCheck(mainOutlet, "2024-06-01",
				qty("hidden", 1), qty("cake-slice", 3), qty("flour", 2), qty("ghost", 4)),
		},
	}

	l := compute(t, snap, req(mainOutlet, "2024-06-02", ModeShort))
	var ids []string
	for _, h := range l.Products {
		ids = append(ids, h.ProductID)
	}
	assert.Equal(t, []string{"cake", "flour"}, ids, "sorted, sub-units folded into pairs, hidden excluded")

	rawOnly, err := NewEngine(catalog.MustProductFilter(`product.category == "raw"`)).
		Compute(context.Background(), snap, req(mainOutlet, "2024-06-02", ModeShort))
	require.NoError(t, err)
	require.Len(t, rawOnly.Products, 1)
	assert.Equal(t, "flour", rawOnly.Products[0].ProductID)
}

func TestCompute_Errors(t *testing.T) {
	snap := &Snapshot{Catalog: testCatalog()}

	_, err := NewEngine(nil).Compute(context.Background(), snap, req("Unknown", "2024-06-02", ModeShort))
	assert.True(t, apperror.IsNotFound(err))

	_, err = NewEngine(nil).Compute(context.Background(), snap, req(mainOutlet, "2024-06-02", Mode(3)))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestComputeProduct(t *testing.T) {
	snap := &Snapshot{
		Catalog: testCatalog(),
		Checks: []*stockcheck.StockCheck{
			userCheck(mainOutlet, "2024-06-01", qty("cake", 1), qty("hidden", 2)),
		},
	}
	e := NewEngine(nil)
	r := req(mainOutlet, "2024-06-02", ModeShort)

	h, err := e.ComputeProduct(context.Background(), snap, r, "cake-slice")
	require.NoError(t, err)
	assert.Equal(t, "cake", h.ProductID)

	h, err = e.ComputeProduct(context.Background(), snap, r, "hidden")
	require.NoError(t, err)
	assert.NotEmpty(t, h.Records)

	h, err = e.ComputeProduct(context.Background(), snap, r, "tea")
	require.NoError(t, err)
	assert.Empty(t, h.Records)

	_, err = e.ComputeProduct(context.Background(), snap, r, "ghost")
	assert.True(t, apperror.IsNotFound(err))
}
