package order

// CheckoutLine is one cart line. Any price sent by the client is ignored.
// swagger:model CheckoutLine
type CheckoutLine struct {
	ProductID string `json:"product_id" validate:"required,uuid" example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	VariantID string `json:"variant_id" validate:"omitempty,uuid" example:"8a1f0b7e-2d55-4c3e-9d0a-0c9b2e6f7a11"`
	Quantity  int    `json:"quantity"   validate:"required,min=1,max=99" example:"2"`
}

// CheckoutRequest is either a cart (items) or a single product purchase
// (product_id + quantity). Contact fields are mandatory for guests.
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	Items []CheckoutLine `json:"items" validate:"omitempty,max=50,dive"`

	ProductID string `json:"product_id" validate:"omitempty,uuid"`
	VariantID string `json:"variant_id" validate:"omitempty,uuid"`
	Quantity  int    `json:"quantity"   validate:"omitempty,min=1,max=99"`

	Name  string `json:"name"  validate:"omitempty,min=2,max=100" example:"Asha Rao"`
	Email string `json:"email" validate:"omitempty,email,max=254" example:"asha@example.com"`
	Phone string `json:"phone" validate:"omitempty,in_mobile" example:"9876543210"`
}

// CheckoutResponse carries what the client needs to open the payment UI.
// swagger:model CheckoutResponse
type CheckoutResponse struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"razorpay_order_id" example:"order_NZ3jX2k9aQ1b2c"`
	Amount          int64  `json:"amount" example:"300000"`
	AmountDisplay   string `json:"amount_display" example:"3000.00"`
	Currency        string `json:"currency" example:"INR"`
	KeyID           string `json:"key_id" example:"rzp_test_1DP5mmOlF5G5ag"`
}

// UpdateStatusRequest is the admin override payload.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"shipped"`
}

// VerifyPaymentRequest is what the checkout widget hands back to the browser.
// swagger:model VerifyPaymentRequest
type VerifyPaymentRequest struct {
	ProviderOrderID   string `json:"razorpay_order_id"`
	ProviderPaymentID string `json:"razorpay_payment_id"`
	Signature         string `json:"razorpay_signature"`
}

func (r *CheckoutRequest) lines() []CheckoutLine {
	if len(r.Items) > 0 {
		return r.Items
	}
	return []CheckoutLine{{ProductID: r.ProductID, VariantID: r.VariantID, Quantity: r.Quantity}}
}

func (r *CheckoutRequest) hasContact() bool {
	return r.Name != "" || r.Email != "" || r.Phone != ""
}
