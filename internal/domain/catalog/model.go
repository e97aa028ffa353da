// Package catalog provides the products, outlets and unit conversion table
// the ledger is evaluated against.
package catalog

import (
	"context"

	"outletstock/internal/core/apperror"
)

// Category classifies a product.
type Category string

const (
	CategoryMenu    Category = "menu"
	CategoryKitchen Category = "kitchen"
	CategoryRaw     Category = "raw"
)

// Product is an item whose stock is tracked per outlet.
type Product struct {
	ID          string   `db:"id" json:"id"`
	Name        string   `db:"name" json:"name"`
	DisplayUnit string   `db:"display_unit" json:"displayUnit"`
	Category    Category `db:"category" json:"category"`

	// ShowInStock hides the product from stock views when false.
	ShowInStock bool `db:"show_in_stock" json:"showInStock"`

	// SalesBasedRawCalc marks a raw material whose consumption is derived
	// from sales (recipe linkage) rather than transfers.
	SalesBasedRawCalc bool `db:"sales_based_raw_calc" json:"salesBasedRawCalc"`
}

// ConsumedBySales reports whether sales outlets derive this product's sold
// quantity from raw-consumption figures.
func (p Product) ConsumedBySales() bool {
	return p.Category == CategoryRaw || p.SalesBasedRawCalc
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.ID == "" {
		return apperror.NewValidation("product id is required").WithDetail("field", "id")
	}
	switch p.Category {
	case CategoryMenu, CategoryKitchen, CategoryRaw:
	default:
		return apperror.NewValidation("invalid product category").
			WithDetail("field", "category").
			WithDetail("value", p.Category)
	}
	return nil
}

// OutletType distinguishes outlets that produce stock from outlets that sell it.
type OutletType string

const (
	OutletProduction OutletType = "production"
	OutletSales      OutletType = "sales"
)

// Outlet is a kitchen/warehouse or a shop.
type Outlet struct {
	Name string     `db:"name" json:"name"`
	Type OutletType `db:"type" json:"type"`
}

// IsProduction reports whether the outlet manufactures or supplies stock.
func (o Outlet) IsProduction() bool {
	return o.Type == OutletProduction
}

// ConversionPair links a whole-unit product to its sub-unit product.
// 1 whole unit = Factor sub-units.
type ConversionPair struct {
	WholeProductID string `db:"whole_product_id" json:"wholeProductId"`
	SubProductID   string `db:"sub_product_id" json:"subProductId"`
	Factor         int    `db:"factor" json:"factor"`
}

// Validate implements entity.Validatable.
func (c *ConversionPair) Validate(ctx context.Context) error {
	if c.WholeProductID == "" || c.SubProductID == "" {
		return apperror.NewValidation("both sides of a conversion pair are required")
	}
	if c.WholeProductID == c.SubProductID {
		return apperror.NewValidation("a product cannot be paired with itself").
			WithDetail("productId", c.WholeProductID)
	}
	if c.Factor <= 0 {
		return apperror.NewValidation("conversion factor must be a positive integer").
			WithDetail("factor", c.Factor)
	}
	return nil
}

// Catalog is an immutable view of products, outlets and conversions taken
// together with the source collections.
type Catalog struct {
	Products    []Product
	Outlets     []Outlet
	Conversions []ConversionPair
}

// Outlet looks up an outlet by name.
func (c *Catalog) Outlet(name string) (Outlet, bool) {
	for _, o := range c.Outlets {
		if o.Name == name {
			return o, true
		}
	}
	return Outlet{}, false
}

// Repository provides read access to the catalog.
type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListOutlets(ctx context.Context) ([]Outlet, error)
	ListConversions(ctx context.Context) ([]ConversionPair, error)
	GetOutlet(ctx context.Context, name string) (Outlet, error)
}
