// Package source_repo provides PostgreSQL implementations of the catalog and
// source collection repositories the ledger reads.
//
// Every read filters tombstoned rows. DATE columns are selected as text so
// they scan straight into types.Date.
package source_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"outletstock/internal/core/types"
	"outletstock/internal/infrastructure/storage/postgres"
)

var notDeleted = sq.Eq{"deleted_at": nil}

// dateText selects a DATE column as YYYY-MM-DD text.
func dateText(col string) string {
	return col + "::text"
}

// inRange limits col to [from, to].
func inRange(col string, from, to types.Date) sq.And {
	return sq.And{
		sq.GtOrEq{col: from.String()},
		sq.LtOrEq{col: to.String()},
	}
}

// baseRepo carries the transaction manager shared by all repositories.
type baseRepo struct {
	txm *postgres.TxManager
}

func (r baseRepo) selectAll(ctx context.Context, dst any, q sq.Sqlizer, what string) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dst, query, args...); err != nil {
		return fmt.Errorf("select %s: %w", what, err)
	}
	return nil
}
