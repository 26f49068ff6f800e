package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// Create stores the order and its lines atomically.
	Create(ctx context.Context, o *Order, lines []Line) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*Order, error)
	GetLines(ctx context.Context, orderID string) ([]Line, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	// SetProviderOrderID records the remote order reference once; a second
	// call returns ErrProviderRefSet.
	SetProviderOrderID(ctx context.Context, id, providerOrderID string) error
	// Transition moves the order from -> to only if it is still in from.
	// paymentID, when non-empty, is stored with the transition. It reports
	// whether this call performed the change.
	Transition(ctx context.Context, id string, from, to Status, paymentID string) (bool, error)
	SoftDelete(ctx context.Context, id string) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `id, COALESCE(user_id::text, ''), contact_name, contact_email, contact_phone,
	total_amount, currency, status, COALESCE(razorpay_order_id, ''), COALESCE(razorpay_payment_id, ''),
	created_at, updated_at, deleted_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.ContactName, &o.ContactEmail, &o.ContactPhone,
		&o.Total, &o.Currency, &o.Status, &o.ProviderOrderID, &o.ProviderPaymentID,
		&o.CreatedAt, &o.UpdatedAt, &o.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) Create(ctx context.Context, o *Order, lines []Line) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, contact_name, contact_email, contact_phone,
		                    total_amount, currency, status, created_at, updated_at)
		VALUES ($1, NULLIF($2,'')::uuid, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`, o.ID, o.UserID, o.ContactName, o.ContactEmail, o.ContactPhone,
		o.Total, o.Currency, o.Status).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i := range lines {
		if lines[i].ID == "" {
			lines[i].ID = uuid.NewString()
		}
		lines[i].OrderID = o.ID
		batch.Queue(`
			INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, unit_price)
			VALUES ($1, $2, $3, NULLIF($4,'')::uuid, $5, $6)
		`, lines[i].ID, o.ID, lines[i].ProductID, lines[i].VariantID, lines[i].Quantity, lines[i].UnitPrice)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return scanOrder(r.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE id = $1 AND deleted_at IS NULL
	`, id))
}

// GetByProviderOrderID includes soft-deleted orders: payments for them must
// still reconcile.
func (r *PGRepo) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return scanOrder(r.db.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE razorpay_order_id = $1
	`, providerOrderID))
}

func (r *PGRepo) GetLines(ctx context.Context, orderID string) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, COALESCE(variant_id::text, ''), quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.VariantID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetProviderOrderID(ctx context.Context, id, providerOrderID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET razorpay_order_id = $2, updated_at = NOW()
		WHERE id = $1 AND razorpay_order_id IS NULL
	`, id, providerOrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderRefSet
	}
	return nil
}

func (r *PGRepo) Transition(ctx context.Context, id string, from, to Status, paymentID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $3,
		    razorpay_payment_id = COALESCE(NULLIF($4,''), razorpay_payment_id),
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, paymentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PGRepo) SoftDelete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
