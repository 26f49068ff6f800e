package settlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
)

type memOrders struct {
	mu        sync.Mutex
	orders    map[string]*order.Order
	lines     map[string][]order.Line
	lookupErr error
	writes    int
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]*order.Order{}, lines: map[string][]order.Line{}}
}

func (m *memOrders) add(o order.Order, lines ...order.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = &o
	m.lines[o.ID] = lines
}

func (m *memOrders) get(id string) order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.orders[id]
}

func (m *memOrders) GetByProviderOrderID(_ context.Context, ref string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, o := range m.orders {
		if o.ProviderOrderID == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) GetLines(_ context.Context, id string) ([]order.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]order.Line(nil), m.lines[id]...), nil
}

func (m *memOrders) Transition(_ context.Context, id string, from, to order.Status, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if paymentID != "" {
		o.ProviderPaymentID = paymentID
	}
	m.writes++
	return true, nil
}

type memLedger struct {
	mu      sync.Mutex
	records []payment.Record
	err     error
}

func (l *memLedger) Insert(_ context.Context, r *payment.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	for _, ex := range l.records {
		if ex.ProviderPaymentID == r.ProviderPaymentID {
			return payment.ErrDuplicatePayment
		}
	}
	l.records = append(l.records, *r)
	return nil
}

func (l *memLedger) ListByOrder(_ context.Context, orderID string) ([]payment.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []payment.Record
	for _, r := range l.records {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type memStock struct {
	mu     sync.Mutex
	stock  map[string]int
	calls  int
	delay  time.Duration
	failOn string
}

func (s *memStock) Decrement(_ context.Context, productID, variantID string, qty int) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	key := productID
	if variantID != "" {
		key = variantID
	}
	if key == s.failOn {
		return errors.New("stock row missing")
	}
	s.stock[key] -= qty
	return nil
}

func (s *memStock) level(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[key]
}

func (s *memStock) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
