package settlement_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/database"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/product"
	"github.com/MikeMC777/storefront/internal/settlement"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := database.Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgres_ConcurrentCaptureSettlesOnce(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()

	pid, vid := uuid.NewString(), uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO products (id, name, price, stock) VALUES ($1, 'Saree', 1500.00, 0)`, pid)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO product_variants (id, product_id, sku, price, stock) VALUES ($1, $2, 'SR-RED', 1500.00, 10)`, vid, pid)
	require.NoError(t, err)

	orders := order.NewPGRepo(pool)
	o := &order.Order{
		ID:           uuid.NewString(),
		ContactName:  "Asha Rao",
		ContactEmail: "asha@example.com",
		ContactPhone: "9876543210",
		Total:        300000,
		Currency:     "INR",
		Status:       order.StatusPending,
	}
	require.NoError(t, orders.Create(ctx, o, []order.Line{{ProductID: pid, VariantID: vid, Quantity: 2, UnitPrice: 150000}}))

	ref := "order_" + uuid.NewString()[:14]
	require.NoError(t, orders.SetProviderOrderID(ctx, o.ID, ref))
	assert.ErrorIs(t, orders.SetProviderOrderID(ctx, o.ID, "order_other"), order.ErrProviderRefSet)

	ledger := payment.NewPGLedger(pool)
	engine := settlement.NewEngine(orders, ledger, product.NewAdjuster(product.NewPGRepo(pool), nil), settlement.Options{
		WebhookSecret: "whsec_it",
	})
	ev := &payment.Event{Name: payment.EventPaymentCaptured}
	ev.Payload.Payment = &struct {
		Entity payment.PaymentEntity `json:"entity"`
	}{Entity: payment.PaymentEntity{ID: "pay_" + uuid.NewString()[:14], OrderID: ref, Amount: 300000, Currency: "INR"}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Apply(ctx, ev)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, engine.Wait(waitCtx))

	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, got.Status)

	recs, err := ledger.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM product_variants WHERE id=$1`, vid).Scan(&stock))
	assert.Equal(t, 8, stock)
}
