package ledger

import (
	"context"
	"sync"
	"time"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/documents/legacy"
	"outletstock/internal/domain/documents/production"
	"outletstock/internal/domain/documents/sales"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/internal/domain/documents/transfer"
)

const (
	mainOutlet    = "Main"
	kitchenOutlet = "Kitchen"
)

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		Products: []catalog.Product{
			{ID: "cake", Name: "Cake", DisplayUnit: "pc", Category: catalog.CategoryMenu, ShowInStock: true},
			{ID: "cake-slice", Name: "Cake slice", DisplayUnit: "slice", Category: catalog.CategoryMenu, ShowInStock: true},
			{ID: "butter", Name: "Butter", DisplayUnit: "block", Category: catalog.CategoryRaw, ShowInStock: true},
			{ID: "butter-pat", Name: "Butter pat", DisplayUnit: "pat", Category: catalog.CategoryRaw, ShowInStock: true},
			{ID: "flour", Name: "Flour", DisplayUnit: "kg", Category: catalog.CategoryRaw, ShowInStock: true},
			{ID: "tea", Name: "Tea", DisplayUnit: "cup", Category: catalog.CategoryMenu, ShowInStock: true},
			{ID: "hidden", Name: "Hidden", DisplayUnit: "pc", Category: catalog.CategoryMenu, ShowInStock: false},
		},
		Outlets: []catalog.Outlet{
			{Name: mainOutlet, Type: catalog.OutletSales},
			{Name: kitchenOutlet, Type: catalog.OutletProduction},
		},
		Conversions: []catalog.ConversionPair{
			{WholeProductID: "cake", SubProductID: "cake-slice", Factor: 10},
			{WholeProductID: "butter", SubProductID: "butter-pat", Factor: 8},
		},
	}
}

var clock = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

// userCheck creates a check completed by a person. Later calls get later
// timestamps.
func userCheck(outlet, date string, counts ...stockcheck.Count) *stockcheck.StockCheck {
	c := stockcheck.New(outlet, types.MustDate(date), "alice")
	clock = clock.Add(time.Minute)
	c.Timestamp = clock
	c.Counts = counts
	return c
}

func qty(productID string, q float64) stockcheck.Count {
	return stockcheck.Count{ProductID: productID, Quantity: q}
}

func approved(productID, from, to, date string, q float64) transfer.Request {
	return transfer.Request{
		ID:          productID + from + to + date,
		ProductID:   productID,
		FromOutlet:  from,
		ToOutlet:    to,
		RequestDate: types.MustDate(date),
		Quantity:    q,
		Status:      transfer.StatusApproved,
	}
}

func salesReport(date string, items ...sales.Item) *sales.Report {
	return &sales.Report{ID: "s-" + date, Outlet: mainOutlet, Date: types.MustDate(date), Items: items}
}

func legacyEntry(outlet, date string) *legacy.Entry {
	return &legacy.Entry{ID: "l-" + date, Outlet: outlet, Date: types.MustDate(date)}
}

func productionReport(date string, items ...production.Item) *production.Report {
	return &production.Report{ID: "p-" + date, Outlet: kitchenOutlet, Date: types.MustDate(date), Items: items}
}

func req(outlet, anchor string, mode Mode) Request {
	return Request{Outlet: outlet, Anchor: types.MustDate(anchor), Mode: mode}
}

func f64(v float64) *float64 { return &v }

// memStore is an in-memory source store. It serves catalog and stock check
// repositories and loads snapshots.
type memStore struct {
	mu sync.Mutex

	cat        catalog.Catalog
	checks     []*stockcheck.StockCheck
	transfers  []transfer.Request
	production []*production.Report
	sales      []*sales.Report
	legacy     []*legacy.Entry

	saves int
	loads int
}

func newMemStore() *memStore {
	return &memStore{cat: testCatalog()}
}

func cloneCheck(c *stockcheck.StockCheck) *stockcheck.StockCheck {
	cp := *c
	cp.Counts = append([]stockcheck.Count(nil), c.Counts...)
	return &cp
}

func (m *memStore) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return m.cat.Products, nil
}

func (m *memStore) ListOutlets(ctx context.Context) ([]catalog.Outlet, error) {
	return m.cat.Outlets, nil
}

func (m *memStore) ListConversions(ctx context.Context) ([]catalog.ConversionPair, error) {
	return m.cat.Conversions, nil
}

func (m *memStore) GetOutlet(ctx context.Context, name string) (catalog.Outlet, error) {
	if o, ok := m.cat.Outlet(name); ok {
		return o, nil
	}
	return catalog.Outlet{}, apperror.NewNotFound("outlet", name)
}

func (m *memStore) ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*stockcheck.StockCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*stockcheck.StockCheck
	for _, c := range m.checks {
		if c.Outlet == outlet && !c.Date.Before(from) && !to.Before(c.Date) && !c.IsDeleted() {
			out = append(out, cloneCheck(c))
		}
	}
	return out, nil
}

func (m *memStore) ListByOutletDate(ctx context.Context, outlet string, date types.Date) ([]*stockcheck.StockCheck, error) {
	return m.ListByOutletDates(ctx, outlet, date, date)
}

func (m *memStore) Save(ctx context.Context, check *stockcheck.StockCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	for i, c := range m.checks {
		if c.ID == check.ID {
			m.checks[i] = cloneCheck(check)
			return nil
		}
	}
	m.checks = append(m.checks, cloneCheck(check))
	return nil
}

func (m *memStore) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *memStore) Load(ctx context.Context, outlet string, from, to types.Date) (*Snapshot, error) {
	checks, _ := m.ListByOutletDates(ctx, outlet, from, to)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++

	inRange := func(d types.Date) bool { return !d.Before(from) && !to.Before(d) }
	snap := &Snapshot{Catalog: m.cat, Checks: checks}
	for _, t := range m.transfers {
		if (t.FromOutlet == outlet || t.ToOutlet == outlet) && inRange(t.RequestDate) {
			snap.Transfers = append(snap.Transfers, t)
		}
	}
	for _, r := range m.production {
		if r.Outlet == outlet && inRange(r.Date) {
			snap.Production = append(snap.Production, r)
		}
	}
	for _, r := range m.sales {
		if r.Outlet == outlet && inRange(r.Date) {
			snap.Sales = append(snap.Sales, r)
		}
	}
	for _, e := range m.legacy {
		if e.Outlet == outlet && inRange(e.Date) {
			snap.Legacy = append(snap.Legacy, e)
		}
	}
	return snap, nil
}
