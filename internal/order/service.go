package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/MikeMC777/storefront/internal/customer"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/product"
)

type PriceResolver interface {
	Resolve(ctx context.Context, productID, variantID string, qty int) (product.Quote, error)
}

type SessionOpener interface {
	OpenSession(ctx context.Context, amount int64, currency, receipt string) (*payment.Session, error)
}

type ProfileLookup interface {
	Lookup(ctx context.Context, userID string) (*customer.Profile, error)
}

type Restocker interface {
	Restock(ctx context.Context, productID, variantID string, qty int) error
}

type Options struct {
	Currency string
	KeyID    string // public key id echoed to the checkout widget
	// Profiles fills contact details for signed-in customers. Optional.
	Profiles ProfileLookup
	// Restocker returns stock when a paid order is cancelled. Optional.
	Restocker Restocker
	Logger    *slog.Logger
	Now       func() time.Time
}

type Service struct {
	repo     Repository
	prices   PriceResolver
	sessions SessionOpener
	opts     Options
	log      *slog.Logger
}

func NewService(repo Repository, prices PriceResolver, sessions SessionOpener, opts Options) *Service {
	if repo == nil || prices == nil || sessions == nil {
		panic("order: NewService requires a repository, a price resolver and a session opener")
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, prices: prices, sessions: sessions, opts: opts, log: log}
}

type CheckoutInput struct {
	Request CheckoutRequest
	// UserID is the authenticated customer; empty for guests.
	UserID string
}

type CheckoutResult struct {
	Order   *Order
	Lines   []Line
	Session *payment.Session
	KeyID   string
}

func (r *CheckoutResult) Response() CheckoutResponse {
	return CheckoutResponse{
		OrderID:         r.Order.ID,
		ProviderOrderID: r.Session.ProviderOrderID,
		Amount:          r.Order.Total,
		AmountDisplay:   product.FormatMinor(r.Order.Total),
		Currency:        r.Order.Currency,
		KeyID:           r.KeyID,
	}
}

// Checkout prices the cart from the catalog, stores a pending order and
// opens a payment session for it. Client-supplied prices never reach here.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	req := in.Request
	guest := in.UserID == ""
	if guest && !req.hasContact() {
		return nil, ErrAuthRequired
	}
	if err := validateCheckout(&req, guest); err != nil {
		return nil, err
	}
	if !guest {
		s.fillContact(ctx, in.UserID, &req)
	}

	lines, total, err := s.priceLines(ctx, req.lines())
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	o := &Order{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		ContactName:  req.Name,
		ContactEmail: req.Email,
		ContactPhone: req.Phone,
		Total:        total,
		Currency:     s.opts.Currency,
		Status:       StatusPending,
	}
	if err := s.repo.Create(ctx, o, lines); err != nil {
		s.log.Error("[order] persist failed", "order_id", o.ID, "total", total, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	sess, err := s.sessions.OpenSession(ctx, o.Total, o.Currency, payment.NewReceipt(o.ID, now))
	if err != nil {
		// the pending order stays for audit; the customer retries with a new checkout
		s.log.Error("[order] payment session failed", "order_id", o.ID, "err", err)
		return nil, fmt.Errorf("open payment session: %w", err)
	}
	if err := s.repo.SetProviderOrderID(ctx, o.ID, sess.ProviderOrderID); err != nil {
		s.log.Error("[order] could not store provider order id",
			"order_id", o.ID, "provider_order_id", sess.ProviderOrderID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	o.ProviderOrderID = sess.ProviderOrderID

	s.log.Info("[order] checkout created",
		"order_id", o.ID,
		"provider_order_id", sess.ProviderOrderID,
		"amount", o.Total,
		"lines", len(lines),
		"guest", guest,
	)
	return &CheckoutResult{Order: o, Lines: lines, Session: sess, KeyID: s.opts.KeyID}, nil
}

func (s *Service) priceLines(ctx context.Context, reqLines []CheckoutLine) ([]Line, int64, error) {
	lines := make([]Line, 0, len(reqLines))
	var total int64
	for i, rl := range reqLines {
		q, err := s.prices.Resolve(ctx, rl.ProductID, rl.VariantID, rl.Quantity)
		switch {
		case errors.Is(err, product.ErrNotFound):
			return nil, 0, &LineError{Index: i, ProductID: rl.ProductID, VariantID: rl.VariantID, Err: ErrUnavailable}
		case errors.Is(err, product.ErrInvalidQuantity):
			return nil, 0, &ValidationError{Fields: map[string]string{"quantity": "must be between 1 and 99"}}
		case err != nil:
			return nil, 0, fmt.Errorf("resolve line %d: %w", i, err)
		}
		if !q.Available {
			return nil, 0, &LineError{Index: i, ProductID: rl.ProductID, VariantID: rl.VariantID, Err: ErrInsufficientStock}
		}

		qty := int64(rl.Quantity)
		if q.UnitPrice > 0 && q.UnitPrice > (math.MaxInt64-total)/qty {
			return nil, 0, ErrInvalidTotal
		}
		total += q.UnitPrice * qty
		lines = append(lines, Line{
			ProductID: rl.ProductID,
			VariantID: rl.VariantID,
			Quantity:  rl.Quantity,
			UnitPrice: q.UnitPrice,
		})
	}
	if total <= 0 {
		return nil, 0, ErrInvalidTotal
	}
	return lines, total, nil
}

func (s *Service) fillContact(ctx context.Context, userID string, req *CheckoutRequest) {
	if s.opts.Profiles == nil || (req.Name != "" && req.Email != "" && req.Phone != "") {
		return
	}
	p, err := s.opts.Profiles.Lookup(ctx, userID)
	if err != nil {
		s.log.Warn("[order] customer directory lookup failed", "user_id", userID, "err", err)
		return
	}
	if req.Name == "" {
		req.Name = p.FullName
	}
	if req.Email == "" {
		req.Email = p.Email
	}
	if req.Phone == "" {
		req.Phone = p.Phone
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Lines(ctx context.Context, id string) ([]Line, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetLines(ctx, id)
}

func (s *Service) ByProviderOrderID(ctx context.Context, providerOrderID string) (*Order, error) {
	return s.repo.GetByProviderOrderID(ctx, providerOrderID)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// UpdateStatus applies an administrator's manual transition. Cancelling a
// paid order puts its stock back.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if !canTransitionManually(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	ok, err := s.repo.Transition(ctx, id, from, to, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStatusConflict
	}
	s.log.Info("[order] status updated", "order_id", id, "from", from, "to", to)

	if from == StatusPaid && to == StatusCancelled {
		s.restock(ctx, id)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) restock(ctx context.Context, id string) {
	if s.opts.Restocker == nil {
		return
	}
	lines, err := s.repo.GetLines(ctx, id)
	if err != nil {
		s.log.Error("[order] restock skipped: lines unavailable", "order_id", id, "err", err)
		return
	}
	for _, l := range lines {
		if err := s.opts.Restocker.Restock(ctx, l.ProductID, l.VariantID, l.Quantity); err != nil {
			s.log.Error("[order] restock failed", "order_id", id, "product_id", l.ProductID, "err", err)
		}
	}
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.Info("[order] soft deleted", "order_id", id)
	return nil
}
