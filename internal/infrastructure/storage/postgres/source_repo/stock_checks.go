package source_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"outletstock/internal/core/apperror"
	"outletstock/internal/core/id"
	"outletstock/internal/core/types"
	"outletstock/internal/domain/documents/stockcheck"
	"outletstock/internal/infrastructure/storage/postgres"
)

const (
	checksTable = "stock_checks"
	countsTable = "stock_counts"
)

var (
	checkColumns = postgres.ExtractDBColumns[stockcheck.StockCheck]()
	checkSelect  = postgres.SelectColumns(checkColumns, map[string]string{"date": dateText("date")})

	countColumns = append([]string{"check_id"}, postgres.ExtractDBColumns[stockcheck.Count]()...)
	countSelect  = postgres.SelectColumns(countColumns, map[string]string{
		"manually_edited_date": "COALESCE(manually_edited_date::text, '')",
	})
)

// countRow is a stock_counts row.
type countRow struct {
	CheckID id.ID `db:"check_id"`
	stockcheck.Count
}

// StockCheckRepo persists stock checks and their counts.
type StockCheckRepo struct {
	baseRepo
	batch *postgres.BatchInserter
}

var _ stockcheck.Repository = (*StockCheckRepo)(nil)

// NewStockCheckRepo creates a new stock check repository.
func NewStockCheckRepo(txm *postgres.TxManager) *StockCheckRepo {
	return &StockCheckRepo{
		baseRepo: baseRepo{txm: txm},
		batch:    postgres.NewBatchInserter(txm),
	}
}

func checksQuery(outlet string, from, to types.Date) sq.SelectBuilder {
	return postgres.Builder().
		Select(checkSelect...).
		From(checksTable).
		Where(notDeleted).
		Where(sq.Eq{"outlet": outlet}).
		Where(inRange("date", from, to)).
		OrderBy("date", "timestamp", "id")
}

func countsQuery(checkIDs []id.ID) sq.SelectBuilder {
	return postgres.Builder().
		Select(countSelect...).
		From(countsTable).
		Where(sq.Eq{"check_id": checkIDs}).
		OrderBy("check_id", "product_id")
}

// ListByOutletDates returns the live checks of outlet dated within [from, to]
// with their counts.
func (r *StockCheckRepo) ListByOutletDates(ctx context.Context, outlet string, from, to types.Date) ([]*stockcheck.StockCheck, error) {
	var checks []*stockcheck.StockCheck
	if err := r.selectAll(ctx, &checks, checksQuery(outlet, from, to), "stock checks"); err != nil {
		return nil, err
	}
	if err := r.attachCounts(ctx, checks); err != nil {
		return nil, err
	}
	return checks, nil
}

// ListByOutletDate returns the live checks of outlet on date.
func (r *StockCheckRepo) ListByOutletDate(ctx context.Context, outlet string, date types.Date) ([]*stockcheck.StockCheck, error) {
	return r.ListByOutletDates(ctx, outlet, date, date)
}

func (r *StockCheckRepo) attachCounts(ctx context.Context, checks []*stockcheck.StockCheck) error {
	if len(checks) == 0 {
		return nil
	}

	ids := make([]id.ID, len(checks))
	byID := make(map[id.ID]*stockcheck.StockCheck, len(checks))
	for i, c := range checks {
		ids[i] = c.ID
		byID[c.ID] = c
		c.Counts = make([]stockcheck.Count, 0)
	}

	var rows []countRow
	if err := r.selectAll(ctx, &rows, countsQuery(ids), "stock counts"); err != nil {
		return err
	}
	for _, row := range rows {
		if c, ok := byID[row.CheckID]; ok {
			c.Counts = append(c.Counts, row.Count)
		}
	}
	return nil
}

// Save inserts a new check (Version 1) or updates an existing one with
// optimistic locking on Version, then replaces its counts.
func (r *StockCheckRepo) Save(ctx context.Context, check *stockcheck.StockCheck) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.saveHeader(ctx, check); err != nil {
			return err
		}
		return r.replaceCounts(ctx, check)
	})
}

func headerValues(check *stockcheck.StockCheck) map[string]any {
	data := postgres.StructToMap(check)
	data["date"] = check.Date.String()
	return data
}

func saveHeaderQuery(check *stockcheck.StockCheck) sq.Sqlizer {
	data := headerValues(check)
	if check.Version <= 1 {
		return postgres.Builder().
			Insert(checksTable).
			SetMap(data).
			Suffix("ON CONFLICT (id) DO NOTHING")
	}

	set := make(map[string]any, len(data))
	for _, col := range postgres.Without(checkColumns, "id", "created_at") {
		set[col] = data[col]
	}
	return postgres.Builder().
		Update(checksTable).
		SetMap(set).
		Where(sq.Eq{"id": check.ID, "version": check.Version - 1})
}

func (r *StockCheckRepo) saveHeader(ctx context.Context, check *stockcheck.StockCheck) error {
	query, args, err := saveHeaderQuery(check).ToSql()
	if err != nil {
		return fmt.Errorf("build stock check save: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save stock check: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("stock check was modified concurrently").
			WithDetail("id", check.ID).
			WithDetail("version", check.Version)
	}
	return nil
}

// countValues renders the counts of check as COPY rows in countColumns order.
func countValues(check *stockcheck.StockCheck) [][]any {
	rows := make([][]any, 0, len(check.Counts))
	for _, c := range check.Counts {
		var edited any
		if !c.ManuallyEditedDate.IsZero() {
			edited = c.ManuallyEditedDate.Time()
		}
		rows = append(rows, []any{
			check.ID,
			c.ProductID,
			c.Quantity,
			c.OpeningStock,
			c.ReceivedStock,
			c.Wastage,
			edited,
			c.AutoFilledReceivedFromProdReq,
		})
	}
	return rows
}

func (r *StockCheckRepo) replaceCounts(ctx context.Context, check *stockcheck.StockCheck) error {
	query, args, err := postgres.Builder().
		Delete(countsTable).
		Where(sq.Eq{"check_id": check.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build counts delete: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete counts: %w", err)
	}

	if _, err := r.batch.CopyFromSlice(ctx, countsTable, countColumns, countValues(check)); err != nil {
		return fmt.Errorf("copy counts: %w", err)
	}
	return nil
}
