package order

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ParseStatus accepts the lifecycle states an order can be stored in.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusFailed, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

// manualTransitions are the moves an administrator may apply. pending->paid
// and pending->failed are absent: only settlement drives them.
var manualTransitions = map[Status][]Status{
	StatusPending: {StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

func canTransitionManually(from, to Status) bool {
	for _, s := range manualTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id,omitempty"`
	ContactName       string     `json:"contact_name"`
	ContactEmail      string     `json:"contact_email"`
	ContactPhone      string     `json:"contact_phone"`
	Total             int64      `json:"total_amount"` // minor units
	Currency          string     `json:"currency"`
	Status            Status     `json:"status"`
	ProviderOrderID   string     `json:"razorpay_order_id,omitempty"`
	ProviderPaymentID string     `json:"razorpay_payment_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// Line is immutable once written; UnitPrice is the price at checkout time.
type Line struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
