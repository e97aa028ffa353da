package ledger

import (
	"outletstock/internal/domain/catalog"
	"outletstock/internal/domain/conversion"
)

// subject is one ledger line: a standalone product, or a conversion pair
// keyed by its whole-side product.
type subject struct {
	product catalog.Product
	pair    *catalog.ConversionPair
	scale   conversion.Scale
}

func newSubject(p catalog.Product, resolver *conversion.Resolver) subject {
	s := subject{product: p, scale: conversion.Standalone}
	if res, ok := resolver.Resolve(p.ID); ok && res.IsWhole {
		pair := res.Pair
		s.pair = &pair
		s.scale = res.Scale()
	}
	return s
}

func (s subject) paired() bool {
	return s.pair != nil
}

func (s subject) wholeID() string {
	return s.product.ID
}

// subID is empty for standalone products.
func (s subject) subID() string {
	if s.pair == nil {
		return ""
	}
	return s.pair.SubProductID
}

// ids returns the product ids the subject's records may be filed under.
func (s subject) ids() []string {
	if s.pair == nil {
		return []string{s.product.ID}
	}
	return []string{s.product.ID, s.pair.SubProductID}
}

func (s subject) owns(productID string) bool {
	return productID == s.product.ID || (s.pair != nil && productID == s.pair.SubProductID)
}

func (s subject) history() ProductInventoryHistory {
	h := ProductInventoryHistory{
		ProductID:   s.product.ID,
		Name:        s.product.Name,
		DisplayUnit: s.product.DisplayUnit,
		Category:    s.product.Category,
		Records:     make([]DailyInventoryRecord, 0),
	}
	if s.pair != nil {
		h.SubProductID = s.pair.SubProductID
		h.Factor = s.pair.Factor
	}
	return h
}
