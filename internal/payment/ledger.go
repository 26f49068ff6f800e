package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrDuplicatePayment = errors.New("payment already recorded")

const uniqueViolation = "23505"

// Record is one captured payment. Records are append-only.
type Record struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"order_id"`
	ProviderPaymentID string    `json:"razorpay_payment_id"`
	ProviderOrderID   string    `json:"razorpay_order_id"`
	Status            string    `json:"status"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

type Ledger interface {
	// Insert returns ErrDuplicatePayment when the provider payment id
	// already has a record.
	Insert(ctx context.Context, r *Record) error
	ListByOrder(ctx context.Context, orderID string) ([]Record, error)
}

type PGLedger struct{ db *pgxpool.Pool }

func NewPGLedger(db *pgxpool.Pool) *PGLedger { return &PGLedger{db: db} }

func (l *PGLedger) Insert(ctx context.Context, r *Record) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	err := l.db.QueryRow(ctx, `
		INSERT INTO payments (id, order_id, razorpay_payment_id, razorpay_order_id, status, amount, currency, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING created_at
	`, r.ID, r.OrderID, r.ProviderPaymentID, r.ProviderOrderID, r.Status, r.Amount, r.Currency).Scan(&r.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicatePayment
	}
	return err
}

func (l *PGLedger) ListByOrder(ctx context.Context, orderID string) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := l.db.Query(ctx, `
		SELECT id, order_id, razorpay_payment_id, razorpay_order_id, status, amount, currency, created_at
		FROM payments WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.OrderID, &r.ProviderPaymentID, &r.ProviderOrderID, &r.Status, &r.Amount, &r.Currency, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
