// Package ledger derives the daily inventory ledger of an outlet from stock
// checks, transfers, production and sales reports, and the legacy
// reconciliation history.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/types"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/conversion"
	"outletstock/pkg/logger"
)

var tracer = otel.Tracer("outletstock/ledger")

// Request identifies one evaluation: an outlet and a window.
type Request struct {
	Outlet string
	Anchor types.Date
	Mode   Mode
}

// Key identifies the request for coalescing and caching.
func (r Request) Key() string {
	return fmt.Sprintf("%s|%s|%d", r.Outlet, r.Anchor, r.Mode)
}

// Dates returns the evaluated window.
func (r Request) Dates() []types.Date {
	return BuildWindow(r.Anchor, r.Mode)
}

// SourceRange returns the dates the snapshot must cover: the window plus the
// day before it, whose stock check supplies the first opening.
func (r Request) SourceRange() (from, to types.Date) {
	return r.Anchor.AddDays(-int(r.Mode)), r.Anchor
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if r.Outlet == "" {
		return apperror.NewValidation("outlet is required").WithDetail("field", "outlet")
	}
	if _, err := types.ParseDate(r.Anchor.String()); err != nil {
		return apperror.NewValidation("invalid date").WithDetail("field", "date").WithCause(err)
	}
	if !r.Mode.Valid() {
		return apperror.NewValidation("range must be 7 or 30").WithDetail("range", int(r.Mode))
	}
	return nil
}

// Engine is a pure function of a snapshot. It keeps no state between calls
// and is safe for concurrent use.
type Engine struct {
	filter *catalog.ProductFilter
}

// NewEngine creates an engine evaluating the products filter selects.
// A nil filter selects products shown in stock.
func NewEngine(filter *catalog.ProductFilter) *Engine {
	if filter == nil {
		filter = catalog.MustProductFilter(catalog.DefaultFilterExpr)
	}
	return &Engine{filter: filter}
}

// Compute evaluates every selected product of the snapshot for req.
// Products without activity in the window are omitted.
func (e *Engine) Compute(ctx context.Context, snap *Snapshot, req Request) (*Ledger, error) {
	ctx, span := tracer.Start(ctx, "ledger.Compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("ledger.outlet", req.Outlet),
		attribute.String("ledger.anchor", req.Anchor.String()),
		attribute.Int("ledger.mode", int(req.Mode)),
	)

	ev, err := e.prepare(ctx, snap, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	l := &Ledger{
		Outlet:   req.Outlet,
		Anchor:   req.Anchor,
		Mode:     req.Mode,
		Dates:    ev.dates,
		Products: make([]ProductInventoryHistory, 0, len(ev.subjects)),
	}
	for _, subj := range ev.subjects {
		h := ev.history(ctx, subj)
		if len(h.Records) == 0 {
			continue
		}
		l.Products = append(l.Products, h)
	}

	span.SetAttributes(attribute.Int("ledger.products", len(l.Products)))
	return l, nil
}

// ComputeProduct evaluates one product. Either side of a pair resolves to
// the pair's history. The product filter does not apply.
func (e *Engine) ComputeProduct(ctx context.Context, snap *Snapshot, req Request, productID string) (*ProductInventoryHistory, error) {
	ctx, span := tracer.Start(ctx, "ledger.ComputeProduct")
	defer span.End()
	span.SetAttributes(
		attribute.String("ledger.outlet", req.Outlet),
		attribute.String("ledger.product_id", productID),
	)

	ev, err := e.prepareBase(ctx, snap, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	wholeID := productID
	if res, ok := ev.resolver.Resolve(productID); ok {
		wholeID = res.Pair.WholeProductID
	}
	for _, p := range snap.Catalog.Products {
		if p.ID == wholeID {
			h := ev.history(ctx, newSubject(p, ev.resolver))
			return &h, nil
		}
	}
	return nil, apperror.NewNotFound("product", productID)
}

// evaluation is the per-call state of one Compute. It lives only for the
// duration of the call.
type evaluation struct {
	dates    []types.Date
	sources  *Sources
	resolver *conversion.Resolver
	subjects []subject
}

func (e *Engine) prepareBase(ctx context.Context, snap *Snapshot, req Request) (*evaluation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, apperror.NewInternal(fmt.Errorf("nil snapshot for %s", req.Key()))
	}
	outlet, ok := snap.Catalog.Outlet(req.Outlet)
	if !ok {
		return nil, apperror.NewNotFound("outlet", req.Outlet)
	}
	return &evaluation{
		dates:    req.Dates(),
		sources:  NewSources(ctx, snap, outlet),
		resolver: conversion.NewResolver(ctx, snap.Catalog.Conversions),
	}, nil
}

func (e *Engine) prepare(ctx context.Context, snap *Snapshot, req Request) (*evaluation, error) {
	ev, err := e.prepareBase(ctx, snap, req)
	if err != nil {
		return nil, err
	}

	products := make([]catalog.Product, len(snap.Catalog.Products))
	copy(products, snap.Catalog.Products)
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	for _, p := range products {
		if ev.resolver.IsSubUnit(p.ID) {
			continue
		}
		ok, err := e.filter.Match(p)
		if err != nil {
			logger.Warn(ctx, "product skipped: filter error", "product_id", p.ID, "error", err)
			continue
		}
		if ok {
			ev.subjects = append(ev.subjects, newSubject(p, ev.resolver))
		}
	}
	return ev, nil
}

func (ev *evaluation) history(ctx context.Context, subj subject) ProductInventoryHistory {
	b := &dayBuilder{ctx: ctx, src: ev.sources, subj: subj}
	h := subj.history()
	h.Records = sparse(sequence(b, ev.dates))
	return h
}
