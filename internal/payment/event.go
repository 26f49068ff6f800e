package payment

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// Event is the webhook envelope. Only the payment entity is decoded; other
// entities in the payload are ignored.
type Event struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Name      string   `json:"event"`
	Contains  []string `json:"contains"`
	CreatedAt int64    `json:"created_at"`
	Payload   struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// PayloadError names the field that made a verified payload unusable.
type PayloadError struct {
	Field  string
	Reason string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("webhook payload: %s %s", e.Field, e.Reason)
}

// ParseEvent decodes a verified body. Payment events must carry a payment
// entity; captured payments additionally need both provider ids.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, &PayloadError{Field: "body", Reason: "is not valid JSON"}
	}
	if ev.Name == "" {
		return nil, &PayloadError{Field: "event", Reason: "is required"}
	}
	switch ev.Name {
	case EventPaymentCaptured:
		p, err := ev.requirePayment()
		if err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, &PayloadError{Field: "payload.payment.entity.id", Reason: "is required"}
		}
		if p.OrderID == "" {
			return nil, &PayloadError{Field: "payload.payment.entity.order_id", Reason: "is required"}
		}
		if p.Amount <= 0 {
			return nil, &PayloadError{Field: "payload.payment.entity.amount", Reason: "must be positive"}
		}
	case EventPaymentFailed:
		if _, err := ev.requirePayment(); err != nil {
			return nil, err
		}
	}
	return &ev, nil
}

func (ev *Event) requirePayment() (*PaymentEntity, error) {
	if ev.Payload.Payment == nil {
		return nil, &PayloadError{Field: "payload.payment", Reason: "is required"}
	}
	return &ev.Payload.Payment.Entity, nil
}

// Payment returns the payment entity, or nil for events without one.
func (ev *Event) Payment() *PaymentEntity {
	if ev.Payload.Payment == nil {
		return nil
	}
	return &ev.Payload.Payment.Entity
}
