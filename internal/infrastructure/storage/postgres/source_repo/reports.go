package source_repo

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"outletstock/internal/core/types"
	"outletstock/internal/domain/documents/legacy"
	"outletstock/internal/domain/documents/production"
	"outletstock/internal/domain/documents/sales"
	"outletstock/internal/domain/documents/transfer"
	"outletstock/internal/infrastructure/storage/postgres"
)

var (
	transferSelect = postgres.SelectColumns(postgres.ExtractDBColumns[transfer.Request](),
		map[string]string{"request_date": dateText("request_date")})
	productionSelect = postgres.SelectColumns(postgres.ExtractDBColumns[production.Report](),
		map[string]string{"date": dateText("date")})
	salesSelect = postgres.SelectColumns(postgres.ExtractDBColumns[sales.Report](),
		map[string]string{"date": dateText("date")})
	legacySelect = postgres.SelectColumns(postgres.ExtractDBColumns[legacy.Entry](),
		map[string]string{"date": dateText("date")})
)

// outletDayQuery selects rows of table for outlet dated within [from, to].
func outletDayQuery(table string, cols []string, outlet string, from, to types.Date) sq.SelectBuilder {
	return postgres.Builder().
		Select(cols...).
		From(table).
		Where(notDeleted).
		Where(sq.Eq{"outlet": outlet}).
		Where(inRange("date", from, to)).
		OrderBy("date", "updated_at", "id")
}

func transfersQuery(outlet string, from, to types.Date) sq.SelectBuilder {
	return postgres.Builder().
		Select(transferSelect...).
		From("transfer_requests").
		Where(notDeleted).
		Where(sq.Or{sq.Eq{"from_outlet": outlet}, sq.Eq{"to_outlet": outlet}}).
		Where(inRange("request_date", from, to)).
		OrderBy("request_date", "id")
}

// TransferRepo reads transfer requests.
type TransferRepo struct{ baseRepo }

var _ transfer.Repository = (*TransferRepo)(nil)

func NewTransferRepo(txm *postgres.TxManager) *TransferRepo {
	return &TransferRepo{baseRepo{txm: txm}}
}

// ListByOutletDates returns requests into or out of outlet, whatever their status.
func (r *TransferRepo) ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]transfer.Request, error) {
	var out []transfer.Request
	if err := r.selectAll(ctx, &out, transfersQuery(outlet, from, to), "transfers"); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductionRepo reads production reports.
type ProductionRepo struct{ baseRepo }

var _ production.Repository = (*ProductionRepo)(nil)

func NewProductionRepo(txm *postgres.TxManager) *ProductionRepo {
	return &ProductionRepo{baseRepo{txm: txm}}
}

func (r *ProductionRepo) ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*production.Report, error) {
	var out []*production.Report
	q := outletDayQuery("production_reports", productionSelect, outlet, from, to)
	if err := r.selectAll(ctx, &out, q, "production reports"); err != nil {
		return nil, err
	}
	return out, nil
}

// SalesRepo reads sales reports.
type SalesRepo struct{ baseRepo }

var _ sales.Repository = (*SalesRepo)(nil)

func NewSalesRepo(txm *postgres.TxManager) *SalesRepo {
	return &SalesRepo{baseRepo{txm: txm}}
}

func (r *SalesRepo) ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*sales.Report, error) {
	var out []*sales.Report
	q := outletDayQuery("sales_reports", salesSelect, outlet, from, to)
	if err := r.selectAll(ctx, &out, q, "sales reports"); err != nil {
		return nil, err
	}
	return out, nil
}

// LegacyRepo reads the reconciliation history.
type LegacyRepo struct{ baseRepo }

var _ legacy.Repository = (*LegacyRepo)(nil)

func NewLegacyRepo(txm *postgres.TxManager) *LegacyRepo {
	return &LegacyRepo{baseRepo{txm: txm}}
}

func (r *LegacyRepo) ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*legacy.Entry, error) {
	var out []*legacy.Entry
	q := outletDayQuery("legacy_reconciliation", legacySelect, outlet, from, to)
	if err := r.selectAll(ctx, &out, q, "legacy entries"); err != nil {
		return nil, err
	}
	return out, nil
}
