package ledger

import (
	"context"
	"sort"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/documents/legacy"
	"outletstock/internal/domain/documents/production"
	"outletstock/internal/domain/documents/sales"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/internal/domain/documents/transfer"
	"outletstock/pkg/logger"
)

// Snapshot is a consistent, tombstone-filtered view of the catalog and the
// five source collections. The loader scopes the collections to one outlet
// and a date range; records outside the scope are ignored.
type Snapshot struct {
	Catalog    catalog.Catalog
	Checks     []*stockcheck.StockCheck
	Transfers  []transfer.Request
	Production []*production.Report
	Sales      []*sales.Report
	Legacy     []*legacy.Entry
}

// Sources indexes a snapshot by date for one outlet. All accessors are
// read-only; a Sources value is safe for concurrent use once built.
type Sources struct {
	outlet catalog.Outlet

	checks       map[types.Date]*stockcheck.StockCheck
	transfersIn  map[types.Date][]transfer.Request
	transfersOut map[types.Date][]transfer.Request
	production   map[types.Date]*production.Report
	sales        map[types.Date]*sales.Report
	legacy       map[types.Date][]*legacy.Entry
}

// NewSources builds the accessors of outlet. Records referencing an unknown
// outlet or product are skipped and logged.
func NewSources(ctx context.Context, snap *Snapshot, outlet catalog.Outlet) *Sources {
	s := &Sources{
		outlet:       outlet,
		checks:       make(map[types.Date]*stockcheck.StockCheck),
		transfersIn:  make(map[types.Date][]transfer.Request),
		transfersOut: make(map[types.Date][]transfer.Request),
		production:   make(map[types.Date]*production.Report),
		sales:        make(map[types.Date]*sales.Report),
		legacy:       make(map[types.Date][]*legacy.Entry),
	}

	outlets := make(map[string]struct{}, len(snap.Catalog.Outlets))
	for _, o := range snap.Catalog.Outlets {
		outlets[o.Name] = struct{}{}
	}
	products := make(map[string]struct{}, len(snap.Catalog.Products))
	for _, p := range snap.Catalog.Products {
		products[p.ID] = struct{}{}
	}

	checksByDate := make(map[types.Date][]*stockcheck.StockCheck)
	for _, c := range snap.Checks {
		if c == nil || c.Outlet != outlet.Name {
			continue
		}
		checksByDate[c.Date] = append(checksByDate[c.Date], c)
	}
	for d, list := range checksByDate {
		if latest := stockcheck.LatestUserAuthored(list); latest != nil {
			s.checks[d] = latest
		}
	}

	for _, t := range snap.Transfers {
		if !t.Approved() {
			continue
		}
		if t.ToOutlet != outlet.Name && t.FromOutlet != outlet.Name {
			continue
		}
		if _, ok := products[t.ProductID]; !ok {
			logger.Debug(ctx, "record skipped: unknown product",
				"source", "transfer", "id", t.ID, "product_id", t.ProductID)
			continue
		}
		counterpart := t.FromOutlet
		if t.FromOutlet == outlet.Name {
			counterpart = t.ToOutlet
		}
		if _, ok := outlets[counterpart]; !ok {
			logger.Debug(ctx, "record skipped: unknown outlet",
				"source", "transfer", "id", t.ID, "outlet", counterpart)
			continue
		}
		if t.ToOutlet == outlet.Name {
			s.transfersIn[t.RequestDate] = append(s.transfersIn[t.RequestDate], t)
		} else {
			s.transfersOut[t.RequestDate] = append(s.transfersOut[t.RequestDate], t)
		}
	}

	for _, r := range snap.Production {
		if r == nil || r.Outlet != outlet.Name {
			continue
		}
		if cur, ok := s.production[r.Date]; !ok || r.UpdatedAt.After(cur.UpdatedAt) {
			s.production[r.Date] = r
		}
	}

	for _, r := range snap.Sales {
		if r == nil || r.Outlet != outlet.Name {
			continue
		}
		if cur, ok := s.sales[r.Date]; !ok || r.UpdatedAt.After(cur.UpdatedAt) {
			s.sales[r.Date] = r
		}
	}

	for _, e := range snap.Legacy {
		if e == nil || e.Outlet != outlet.Name {
			continue
		}
		s.legacy[e.Date] = append(s.legacy[e.Date], e)
	}
	for _, list := range s.legacy {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		})
	}

	return s
}

// Outlet returns the outlet the accessors are scoped to.
func (s *Sources) Outlet() catalog.Outlet {
	return s.outlet
}

// Check returns the latest user-authored stock check of d.
func (s *Sources) Check(d types.Date) *stockcheck.StockCheck {
	return s.checks[d]
}

// TransfersIn returns approved transfers into the outlet dated d.
func (s *Sources) TransfersIn(d types.Date) []transfer.Request {
	return s.transfersIn[d]
}

// TransfersOut returns approved transfers out of the outlet dated d.
func (s *Sources) TransfersOut(d types.Date) []transfer.Request {
	return s.transfersOut[d]
}

// Production returns the most recently updated production report of d.
func (s *Sources) Production(d types.Date) *production.Report {
	return s.production[d]
}

// Sales returns the most recently updated sales report of d.
func (s *Sources) Sales(d types.Date) *sales.Report {
	return s.sales[d]
}

// Legacy returns the most recently updated reconciliation entry of d.
func (s *Sources) Legacy(d types.Date) *legacy.Entry {
	if list := s.legacy[d]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// LegacyProdsReq returns the most recent Prods.Req update for productID
// across every reconciliation entry of d.
func (s *Sources) LegacyProdsReq(d types.Date, productID string) (legacy.ProdsReqUpdate, bool) {
	var (
		best  legacy.ProdsReqUpdate
		found bool
	)
	for _, e := range s.legacy[d] {
		u, ok := e.LatestProdsReq(productID)
		if !ok {
			continue
		}
		if !found || u.UpdatedAt.After(best.UpdatedAt) {
			best, found = u, true
		}
	}
	return best, found
}
