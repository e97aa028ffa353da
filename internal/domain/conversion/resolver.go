// Package conversion resolves whole-unit/sub-unit product pairs and does the
// arithmetic between the two units.
package conversion

import (
	"context"

	"outletstock/internal/domain/catalog"
	"outletstock/pkg/logger"
)

// Resolution is the pairing of one product.
type Resolution struct {
	Pair catalog.ConversionPair

	// IsWhole is true when the resolved product is the whole-unit side.
	IsWhole bool
}

// Scale returns the unit scale of the pair.
func (r Resolution) Scale() Scale {
	return Scale{Factor: r.Pair.Factor}
}

// Resolver classifies products as paired or standalone.
// It is built once per evaluation pass from the conversion table and never
// changes afterwards, so a product keeps its classification for the whole pass.
type Resolver struct {
	byWhole map[string]catalog.ConversionPair
	bySub   map[string]catalog.ConversionPair
}

// NewResolver indexes pairs. Invalid pairs and pairs that would put a product
// on the same side twice are skipped; the first valid pair wins.
func NewResolver(ctx context.Context, pairs []catalog.ConversionPair) *Resolver {
	r := &Resolver{
		byWhole: make(map[string]catalog.ConversionPair, len(pairs)),
		bySub:   make(map[string]catalog.ConversionPair, len(pairs)),
	}

	for _, p := range pairs {
		if err := p.Validate(ctx); err != nil {
			logger.Warn(ctx, "conversion pair skipped: invalid",
				"whole_product_id", p.WholeProductID,
				"sub_product_id", p.SubProductID,
				"error", err,
			)
			continue
		}
		if _, dup := r.byWhole[p.WholeProductID]; dup {
			logger.Warn(ctx, "conversion pair skipped: whole side already paired",
				"whole_product_id", p.WholeProductID,
				"sub_product_id", p.SubProductID,
			)
			continue
		}
		if _, dup := r.bySub[p.SubProductID]; dup {
			logger.Warn(ctx, "conversion pair skipped: sub-unit side already paired",
				"whole_product_id", p.WholeProductID,
				"sub_product_id", p.SubProductID,
			)
			continue
		}
		r.byWhole[p.WholeProductID] = p
		r.bySub[p.SubProductID] = p
	}

	return r
}

// Resolve returns the pair productID belongs to, or false when it is standalone.
func (r *Resolver) Resolve(productID string) (Resolution, bool) {
	if p, ok := r.byWhole[productID]; ok {
		return Resolution{Pair: p, IsWhole: true}, true
	}
	if p, ok := r.bySub[productID]; ok {
		return Resolution{Pair: p, IsWhole: false}, true
	}
	return Resolution{}, false
}

// IsSubUnit reports whether productID is the sub-unit side of a pair.
func (r *Resolver) IsSubUnit(productID string) bool {
	_, ok := r.bySub[productID]
	return ok
}

// Pairs returns the number of indexed pairs.
func (r *Resolver) Pairs() int {
	return len(r.byWhole)
}
