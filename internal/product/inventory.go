package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrInvalidAdjustment = errors.New("stock adjustment must be positive")

// Adjuster is the single writer of stock counters. Stock may go negative
// under oversell; it is advisory and never blocks a settled payment.
type Adjuster struct {
	store Store
	log   *slog.Logger
}

func NewAdjuster(store Store, log *slog.Logger) *Adjuster {
	if log == nil {
		log = slog.Default()
	}
	return &Adjuster{store: store, log: log}
}

// Decrement removes qty units after a captured payment.
func (a *Adjuster) Decrement(ctx context.Context, productID, variantID string, qty int) error {
	return a.adjust(ctx, "decrement", productID, variantID, qty, -qty)
}

// Restock returns qty units, used when a paid order is cancelled.
func (a *Adjuster) Restock(ctx context.Context, productID, variantID string, qty int) error {
	return a.adjust(ctx, "restock", productID, variantID, qty, qty)
}

func (a *Adjuster) adjust(ctx context.Context, op, productID, variantID string, qty, delta int) error {
	if qty <= 0 {
		return ErrInvalidAdjustment
	}
	if err := a.store.AdjustStock(ctx, productID, variantID, delta); err != nil {
		a.log.Error("[inventory] stock adjustment failed",
			"op", op,
			"product_id", productID,
			"variant_id", variantID,
			"quantity", qty,
			"err", err,
		)
		return fmt.Errorf("%s %s/%s: %w", op, productID, variantID, err)
	}
	return nil
}
