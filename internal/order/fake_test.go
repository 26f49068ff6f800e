package order

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MikeMC777/storefront/internal/customer"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/product"
)

// memRepo emulates the conditional updates of PGRepo under a mutex.
type memRepo struct {
	mu        sync.Mutex
	orders    map[string]*Order
	lines     map[string][]Line
	createErr error
	setRefErr error
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]*Order{}, lines: map[string][]Line{}}
}

func (r *memRepo) Create(_ context.Context, o *Order, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	cp := *o
	r.orders[o.ID] = &cp
	for i := range lines {
		lines[i].ID = o.ID + "-" + string(rune('a'+i))
		lines[i].OrderID = o.ID
	}
	r.lines[o.ID] = append([]Line(nil), lines...)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) GetByProviderOrderID(_ context.Context, ref string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ProviderOrderID == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetLines(_ context.Context, orderID string) ([]Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines[orderID]...), nil
}

func (r *memRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID && o.DeletedAt == nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memRepo) SetProviderOrderID(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setRefErr != nil {
		return r.setRefErr
	}
	o, ok := r.orders[id]
	if !ok || o.ProviderOrderID != "" {
		return ErrProviderRefSet
	}
	o.ProviderOrderID = ref
	return nil
}

func (r *memRepo) Transition(_ context.Context, id string, from, to Status, paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if paymentID != "" {
		o.ProviderPaymentID = paymentID
	}
	return true, nil
}

func (r *memRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	o.DeletedAt = &now
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakePrices struct {
	quotes map[string]product.Quote
	err    error
}

func (f *fakePrices) Resolve(_ context.Context, productID, variantID string, qty int) (product.Quote, error) {
	if f.err != nil {
		return product.Quote{}, f.err
	}
	q, ok := f.quotes[productID+"/"+variantID]
	if !ok {
		return product.Quote{}, product.ErrNotFound
	}
	q.Available = q.Stock >= qty
	return q, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	calls   int
	amounts []int64
	err     error
}

func (f *fakeSessions) OpenSession(_ context.Context, amount int64, currency, receipt string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.amounts = append(f.amounts, amount)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Session{ProviderOrderID: "order_TEST123", Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

type fakeProfiles struct {
	profile *customer.Profile
	err     error
}

func (f *fakeProfiles) Lookup(context.Context, string) (*customer.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type restockCall struct {
	productID, variantID string
	qty                  int
}

type fakeRestocker struct {
	mu    sync.Mutex
	calls []restockCall
}

func (f *fakeRestocker) Restock(_ context.Context, productID, variantID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, restockCall{productID, variantID, qty})
	return nil
}

var errBoom = errors.New("boom")
