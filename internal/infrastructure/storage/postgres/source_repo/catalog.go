package source_repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"outletstock/internal/core/apperror"
	"outletstock/internal/domain/catalog"
	"outletstock/internal/infrastructure/storage/postgres"
)

var (
	productColumns    = postgres.ExtractDBColumns[catalog.Product]()
	outletColumns     = postgres.ExtractDBColumns[catalog.Outlet]()
	conversionColumns = postgres.ExtractDBColumns[catalog.ConversionPair]()
)

// CatalogRepo reads products, outlets and conversion pairs.
type CatalogRepo struct {
	baseRepo
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txm *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{baseRepo{txm: txm}}
}

func productsQuery() sq.SelectBuilder {
	return postgres.Builder().
		Select(productColumns...).
		From("products").
		Where(notDeleted).
		OrderBy("id")
}

func outletsQuery() sq.SelectBuilder {
	return postgres.Builder().
		Select(outletColumns...).
		From("outlets").
		Where(notDeleted).
		OrderBy("name")
}

func conversionsQuery() sq.SelectBuilder {
	return postgres.Builder().
		Select(conversionColumns...).
		From("conversion_pairs").
		Where(notDeleted).
		OrderBy("whole_product_id", "sub_product_id")
}

// ListProducts returns every live product.
func (r *CatalogRepo) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	if err := r.selectAll(ctx, &out, productsQuery(), "products"); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOutlets returns every live outlet.
func (r *CatalogRepo) ListOutlets(ctx context.Context) ([]catalog.Outlet, error) {
	var out []catalog.Outlet
	if err := r.selectAll(ctx, &out, outletsQuery(), "outlets"); err != nil {
		return nil, err
	}
	return out, nil
}

// ListConversions returns the conversion table.
func (r *CatalogRepo) ListConversions(ctx context.Context) ([]catalog.ConversionPair, error) {
	var out []catalog.ConversionPair
	if err := r.selectAll(ctx, &out, conversionsQuery(), "conversions"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOutlet returns the outlet named name or a NotFound error.
func (r *CatalogRepo) GetOutlet(ctx context.Context, name string) (catalog.Outlet, error) {
	query, args, err := outletsQuery().Where(sq.Eq{"name": name}).Limit(1).ToSql()
	if err != nil {
		return catalog.Outlet{}, fmt.Errorf("build outlet query: %w", err)
	}

	var o catalog.Outlet
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &o, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return catalog.Outlet{}, apperror.NewNotFound("outlet", name)
		}
		return catalog.Outlet{}, fmt.Errorf("get outlet: %w", err)
	}
	return o, nil
}

// Load reads the whole catalog.
func (r *CatalogRepo) Load(ctx context.Context) (catalog.Catalog, error) {
	products, err := r.ListProducts(ctx)
	if err != nil {
		return catalog.Catalog{}, err
	}
	outlets, err := r.ListOutlets(ctx)
	if err != nil {
		return catalog.Catalog{}, err
	}
	conversions, err := r.ListConversions(ctx)
	if err != nil {
		return catalog.Catalog{}, err
	}
	return catalog.Catalog{Products: products, Outlets: outlets, Conversions: conversions}, nil
}
