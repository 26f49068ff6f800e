package product

import (
	"context"
	"sync"
)

type memStore struct {
	mu     sync.Mutex
	rows   map[string]*PriceRow
	failOn string
}

func key(productID, variantID string) string { return productID + "/" + variantID }

func newMemStore(rows ...PriceRow) *memStore {
	s := &memStore{rows: map[string]*PriceRow{}}
	for i := range rows {
		r := rows[i]
		s.rows[key(r.ProductID, r.VariantID)] = &r
	}
	return s
}

func (s *memStore) LookupPrice(ctx context.Context, productID, variantID string) (*PriceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[key(productID, variantID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) AdjustStock(ctx context.Context, productID, variantID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn == productID {
		return context.DeadlineExceeded
	}
	r, ok := s.rows[key(productID, variantID)]
	if !ok {
		return ErrNotFound
	}
	r.Stock += delta
	return nil
}

func (s *memStore) stock(productID, variantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[key(productID, variantID)].Stock
}
