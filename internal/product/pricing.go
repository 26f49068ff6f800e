package product

import (
	"context"
	"errors"
	"fmt"
)

const MaxQuantity = 99

var ErrInvalidQuantity = errors.New("quantity out of range")

// Resolver is the only source of unit prices for orders. Prices are read
// from the store on every call; callers cannot supply one.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver { return &Resolver{store: store} }

func (r *Resolver) Resolve(ctx context.Context, productID, variantID string, qty int) (Quote, error) {
	if qty < 1 || qty > MaxQuantity {
		return Quote{}, ErrInvalidQuantity
	}
	row, err := r.store.LookupPrice(ctx, productID, variantID)
	if err != nil {
		return Quote{}, err
	}
	unit, err := ToMinorUnits(row.Price)
	if err != nil {
		// a malformed catalog price is not sellable
		return Quote{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return Quote{
		ProductID: productID,
		VariantID: variantID,
		UnitPrice: unit,
		Stock:     row.Stock,
		Available: row.Stock >= qty,
	}, nil
}
