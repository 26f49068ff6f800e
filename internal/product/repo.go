// Package product reads authoritative prices and mutates stock counters for
// products and their variants.
package product

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Store interface {
	LookupPrice(ctx context.Context, productID, variantID string) (*PriceRow, error)
	// AdjustStock adds delta to the stock counter in a single statement.
	AdjustStock(ctx context.Context, productID, variantID string, delta int) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func validIDs(productID, variantID string) bool {
	if _, err := uuid.Parse(productID); err != nil {
		return false
	}
	if variantID != "" {
		if _, err := uuid.Parse(variantID); err != nil {
			return false
		}
	}
	return true
}

func (r *PGRepo) LookupPrice(ctx context.Context, productID, variantID string) (*PriceRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if !validIDs(productID, variantID) {
		return nil, ErrNotFound
	}

	row := PriceRow{ProductID: productID, VariantID: variantID}
	var err error
	if variantID == "" {
		err = r.db.QueryRow(ctx, `
			SELECT price::text, stock
			FROM products
			WHERE id = $1 AND is_active AND deleted_at IS NULL
		`, productID).Scan(&row.Price, &row.Stock)
	} else {
		err = r.db.QueryRow(ctx, `
			SELECT v.price::text, v.stock
			FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.id = $1 AND v.product_id = $2
			  AND v.is_active AND v.deleted_at IS NULL
			  AND p.is_active AND p.deleted_at IS NULL
		`, variantID, productID).Scan(&row.Price, &row.Stock)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *PGRepo) AdjustStock(ctx context.Context, productID, variantID string, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if !validIDs(productID, variantID) {
		return ErrNotFound
	}

	var (
		sql  string
		args []any
	)
	if variantID == "" {
		sql = `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`
		args = []any{productID, delta}
	} else {
		sql = `UPDATE product_variants SET stock = stock + $3, updated_at = NOW() WHERE id = $1 AND product_id = $2`
		args = []any{variantID, productID, delta}
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
