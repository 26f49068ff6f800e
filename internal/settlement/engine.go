// Package settlement applies verified payment webhooks to orders, the
// payment ledger and stock.
//
// The order row is the serialization point: every state change is a
// conditional update from an expected status, so concurrent or repeated
// deliveries of the same event settle an order exactly once.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeMC777/storefront/internal/health"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
)

// ErrStorage means the outcome could not be determined; the provider
// should redeliver.
var ErrStorage = errors.New("settlement storage failure")

type Outcome string

const (
	OutcomeSettled      Outcome = "settled"
	OutcomeFailed       Outcome = "failed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeUnknownOrder Outcome = "unknown_order"
	OutcomeReconcile    Outcome = "needs_reconciliation"
	OutcomeIgnored      Outcome = "ignored"
)

type Orders interface {
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*order.Order, error)
	GetLines(ctx context.Context, orderID string) ([]order.Line, error)
	Transition(ctx context.Context, id string, from, to order.Status, paymentID string) (bool, error)
}

type Inventory interface {
	Decrement(ctx context.Context, productID, variantID string, qty int) error
}

type Options struct {
	WebhookSecret string
	// InventoryBudget bounds how long a webhook waits for stock updates.
	// Slower updates finish in the background.
	InventoryBudget time.Duration
	Workers         int
	Clock           *health.WebhookClock
	Logger          *slog.Logger
	Now             func() time.Time
}

type Engine struct {
	orders Orders
	ledger payment.Ledger
	stock  Inventory
	opts   Options
	log    *slog.Logger

	background sync.WaitGroup
}

func NewEngine(orders Orders, ledger payment.Ledger, stock Inventory, opts Options) *Engine {
	if opts.InventoryBudget <= 0 {
		opts.InventoryBudget = 3 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Clock == nil {
		opts.Clock = &health.WebhookClock{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{orders: orders, ledger: ledger, stock: stock, opts: opts, log: log}
}

// Handle verifies a raw delivery, then applies it. Signature errors come
// from payment.VerifyWebhook and payload errors are *payment.PayloadError.
func (e *Engine) Handle(ctx context.Context, rawBody []byte, signature string) (Outcome, error) {
	if err := payment.VerifyWebhook(rawBody, signature, e.opts.WebhookSecret); err != nil {
		e.log.Warn("[settlement] webhook rejected",
			"event", "webhook_signature_rejected",
			"reason", err.Error(),
			"body_bytes", len(rawBody),
		)
		return "", err
	}
	e.opts.Clock.Observe(e.opts.Now())

	ev, err := payment.ParseEvent(rawBody)
	if err != nil {
		e.log.Warn("[settlement] webhook payload invalid", "event", "webhook_payload_invalid", "err", err)
		return "", err
	}
	return e.Apply(ctx, ev)
}

// Apply settles an already verified event.
func (e *Engine) Apply(ctx context.Context, ev *payment.Event) (Outcome, error) {
	switch ev.Name {
	case payment.EventPaymentCaptured:
		return e.captured(ctx, ev.Payment())
	case payment.EventPaymentFailed:
		return e.failed(ctx, ev.Payment())
	default:
		e.log.Info("[settlement] event ignored", "webhook_event", ev.Name)
		return OutcomeIgnored, nil
	}
}

func (e *Engine) lookup(ctx context.Context, p *payment.PaymentEntity) (*order.Order, error) {
	o, err := e.orders.GetByProviderOrderID(ctx, p.OrderID)
	if err != nil && !errors.Is(err, order.ErrNotFound) {
		e.log.Error("[settlement] order lookup failed", "provider_order_id", p.OrderID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return o, err
}

func (e *Engine) captured(ctx context.Context, p *payment.PaymentEntity) (Outcome, error) {
	o, err := e.lookup(ctx, p)
	if errors.Is(err, order.ErrNotFound) {
		e.log.Warn("[settlement] capture for unknown order",
			"provider_order_id", p.OrderID, "provider_payment_id", p.ID)
		return OutcomeUnknownOrder, nil
	}
	if err != nil {
		return "", err
	}
	e.checkAmount(o, p)

	ok, err := e.orders.Transition(ctx, o.ID, order.StatusPending, order.StatusPaid, p.ID)
	if err != nil {
		e.log.Error("[settlement] transition to paid failed", "order_id", o.ID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		return e.capturedNotPending(ctx, o.ID, p)
	}

	e.log.Info("[settlement] order paid",
		"order_id", o.ID, "provider_payment_id", p.ID, "amount", p.Amount)
	e.record(ctx, o.ID, p)
	e.adjustInventory(ctx, o.ID)
	return OutcomeSettled, nil
}

// capturedNotPending handles a capture that lost the conditional update:
// either a redelivery or a payment for an order that already left pending.
func (e *Engine) capturedNotPending(ctx context.Context, orderID string, p *payment.PaymentEntity) (Outcome, error) {
	cur, err := e.lookup(ctx, p)
	if err != nil {
		return "", fmt.Errorf("%w: re-read order %s: %v", ErrStorage, orderID, err)
	}

	switch cur.Status {
	case order.StatusPaid, order.StatusShipped, order.StatusDelivered:
		if cur.ProviderPaymentID == "" || cur.ProviderPaymentID == p.ID {
			// the insert is idempotent and repairs a ledger write lost on
			// the first delivery
			e.record(ctx, cur.ID, p)
			e.log.Info("[settlement] duplicate capture", "order_id", cur.ID, "provider_payment_id", p.ID)
			return OutcomeDuplicate, nil
		}
	case order.StatusPending:
		// lost the update yet still pending: nothing is settled, ask for redelivery
		return "", fmt.Errorf("%w: order %s still pending after conditional update", ErrStorage, orderID)
	}

	e.log.Error("[settlement] captured payment needs reconciliation",
		"event", "payment_reconciliation",
		"order_id", cur.ID,
		"status", cur.Status,
		"provider_payment_id", p.ID,
		"recorded_payment_id", cur.ProviderPaymentID,
		"amount", p.Amount,
	)
	e.record(ctx, cur.ID, p)
	return OutcomeReconcile, nil
}

func (e *Engine) failed(ctx context.Context, p *payment.PaymentEntity) (Outcome, error) {
	if p.OrderID == "" {
		e.log.Warn("[settlement] payment failure without order id", "provider_payment_id", p.ID)
		return OutcomeUnknownOrder, nil
	}
	o, err := e.lookup(ctx, p)
	if errors.Is(err, order.ErrNotFound) {
		e.log.Warn("[settlement] failure for unknown order", "provider_order_id", p.OrderID)
		return OutcomeUnknownOrder, nil
	}
	if err != nil {
		return "", err
	}

	ok, err := e.orders.Transition(ctx, o.ID, order.StatusPending, order.StatusFailed, "")
	if err != nil {
		e.log.Error("[settlement] transition to failed failed", "order_id", o.ID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !ok {
		e.log.Info("[settlement] payment failure ignored, order not pending",
			"order_id", o.ID, "provider_payment_id", p.ID)
		return OutcomeDuplicate, nil
	}
	e.log.Info("[settlement] order failed",
		"order_id", o.ID,
		"provider_payment_id", p.ID,
		"error_code", p.ErrorCode,
		"error_description", p.ErrorDescription,
	)
	return OutcomeFailed, nil
}

func (e *Engine) checkAmount(o *order.Order, p *payment.PaymentEntity) {
	if p.Amount == o.Total && (p.Currency == "" || strings.EqualFold(p.Currency, o.Currency)) {
		return
	}
	e.log.Error("[settlement] captured amount differs from order total",
		"event", "amount_mismatch",
		"order_id", o.ID,
		"order_total", o.Total,
		"order_currency", o.Currency,
		"captured_amount", p.Amount,
		"captured_currency", p.Currency,
	)
}

func (e *Engine) record(ctx context.Context, orderID string, p *payment.PaymentEntity) {
	err := e.ledger.Insert(ctx, &payment.Record{
		OrderID:           orderID,
		ProviderPaymentID: p.ID,
		ProviderOrderID:   p.OrderID,
		Status:            "captured",
		Amount:            p.Amount,
		Currency:          strings.ToUpper(p.Currency),
	})
	switch {
	case errors.Is(err, payment.ErrDuplicatePayment):
		e.log.Debug("[settlement] payment already recorded", "order_id", orderID, "provider_payment_id", p.ID)
	case err != nil:
		e.log.Error("[settlement] ledger write failed",
			"event", "ledger_write_failed", "order_id", orderID, "provider_payment_id", p.ID, "err", err)
	}
}

// adjustInventory decrements stock for every line. It waits at most
// InventoryBudget; anything slower keeps running detached from the request.
func (e *Engine) adjustInventory(ctx context.Context, orderID string) {
	work := context.WithoutCancel(ctx)
	lines, err := e.orders.GetLines(work, orderID)
	if err != nil {
		e.log.Error("[settlement] inventory skipped, lines unavailable",
			"event", "inventory_skipped", "order_id", orderID, "err", err)
		return
	}
	if len(lines) == 0 {
		return
	}

	done := make(chan int, 1)
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		var failed atomic.Int32
		var g errgroup.Group
		g.SetLimit(e.opts.Workers)
		for _, l := range lines {
			l := l
			g.Go(func() error {
				if err := e.stock.Decrement(work, l.ProductID, l.VariantID, l.Quantity); err != nil {
					failed.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
		done <- int(failed.Load())
	}()

	timer := time.NewTimer(e.opts.InventoryBudget)
	defer timer.Stop()
	select {
	case n := <-done:
		e.logInventory(orderID, len(lines), n)
	case <-timer.C:
		e.log.Warn("[settlement] inventory update exceeded budget, continuing in background",
			"event", "inventory_budget_exceeded", "order_id", orderID, "budget", e.opts.InventoryBudget)
		e.background.Add(1)
		go func() {
			defer e.background.Done()
			e.logInventory(orderID, len(lines), <-done)
		}()
	}
}

func (e *Engine) logInventory(orderID string, lines, failed int) {
	if failed > 0 {
		e.log.Error("[settlement] inventory partially applied",
			"event", "inventory_partial", "order_id", orderID, "lines", lines, "failed", failed)
		return
	}
	e.log.Debug("[settlement] inventory applied", "order_id", orderID, "lines", lines)
}

// Wait blocks until detached inventory work has finished or ctx ends.
func (e *Engine) Wait(ctx context.Context) error {
	ch := make(chan struct{})
	go func() {
		e.background.Wait()
		close(ch)
	}()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
