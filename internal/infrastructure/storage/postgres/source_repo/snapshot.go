package source_repo

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/ledger"
	"outletstock/internal/infrastructure/storage/postgres"
	"outletstock/pkg/logger"
)

var tracer = otel.Tracer("outletstock/source_repo")

// SnapshotLoader reads the catalog and the five source collections of one
// outlet. Callers run it inside a read-only transaction so every collection
// is read from the same snapshot.
type SnapshotLoader struct {
	Catalog    *CatalogRepo
	Checks     *StockCheckRepo
	Transfers  *TransferRepo
	Production *ProductionRepo
	Sales      *SalesRepo
	Legacy     *LegacyRepo
}

var _ ledger.SnapshotLoader = (*SnapshotLoader)(nil)

// NewSnapshotLoader wires every source repository to txm.
func NewSnapshotLoader(txm *postgres.TxManager) *SnapshotLoader {
	return &SnapshotLoader{
		Catalog:    NewCatalogRepo(txm),
		Checks:     NewStockCheckRepo(txm),
		Transfers:  NewTransferRepo(txm),
		Production: NewProductionRepo(txm),
		Sales:      NewSalesRepo(txm),
		Legacy:     NewLegacyRepo(txm),
	}
}

// Load implements ledger.SnapshotLoader.
func (l *SnapshotLoader) Load(ctx context.Context, outlet string, from, to types.Date) (snap *ledger.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "snapshot.Load")
	span.SetAttributes(
		attribute.String("outlet", outlet),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	snap = &ledger.Snapshot{}

	if snap.Catalog, err = l.Catalog.Load(ctx); err != nil {
		return nil, err
	}
	if snap.Checks, err = l.Checks.ListByOutletDates(ctx, outlet, from, to); err != nil {
		return nil, err
	}
	if snap.Transfers, err = l.Transfers.ListByOutletDates(ctx, outlet, from, to); err != nil {
		return nil, err
	}
	if snap.Production, err = l.Production.ListByOutletDates(ctx, outlet, from, to); err != nil {
		return nil, err
	}
	if snap.Sales, err = l.Sales.ListByOutletDates(ctx, outlet, from, to); err != nil {
		return nil, err
	}
	if snap.Legacy, err = l.Legacy.ListByOutletDates(ctx, outlet, from, to); err != nil {
		return nil, err
	}

	logger.Debug(ctx, "snapshot loaded",
		"outlet", outlet,
		"from", from,
		"to", to,
		"checks", len(snap.Checks),
		"transfers", len(snap.Transfers),
		"production", len(snap.Production),
		"sales", len(snap.Sales),
		"legacy", len(snap.Legacy),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}
