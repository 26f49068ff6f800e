package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	ve, ok := err.(*ValidationError)
	require.True(t, ok, "expected *ValidationError, got %T", err)
	return ve.Fields
}

func TestMobilePattern(t *testing.T) {
	valid := []string{"9876543210", "+919876543210", "919876543210", "6000000000"}
	invalid := []string{"05551234567", "5876543210", "98765", "+9198765432101", "98765x3210", ""}

	for _, p := range valid {
		assert.True(t, mobilePattern.MatchString(p), p)
	}
	for _, p := range invalid {
		assert.False(t, mobilePattern.MatchString(p), p)
	}
}

func TestValidateCheckout_EmptyCart(t *testing.T) {
	req := guestRequest()
	fields := fieldsOf(t, validateCheckout(&req, true))
	assert.Equal(t, "is required", fields["items"])
}

func TestValidateCheckout_BothShapes(t *testing.T) {
	req := guestRequest(CheckoutLine{ProductID: productA, Quantity: 1})
	req.ProductID = productB
	req.Quantity = 1
	fields := fieldsOf(t, validateCheckout(&req, true))
	assert.Contains(t, fields, "product_id")
}

func TestValidateCheckout_LineErrorsUseJSONPaths(t *testing.T) {
	req := guestRequest(
		CheckoutLine{ProductID: productA, Quantity: 1},
		CheckoutLine{ProductID: "not-a-uuid", Quantity: 100},
	)
	fields := fieldsOf(t, validateCheckout(&req, true))
	assert.Equal(t, "must be a valid UUID", fields["items[1].product_id"])
	assert.Equal(t, "must be at most 99", fields["items[1].quantity"])
	assert.NotContains(t, fields, "items[0].product_id")
}

func TestValidateCheckout_TooManyLines(t *testing.T) {
	var lines []CheckoutLine
	for i := 0; i < 51; i++ {
		lines = append(lines, CheckoutLine{ProductID: productA, Quantity: 1})
	}
	req := guestRequest(lines...)
	fields := fieldsOf(t, validateCheckout(&req, true))
	assert.Equal(t, "must contain at most 50 entries", fields["items"])
}

func TestValidateCheckout_SingleModeNeedsQuantity(t *testing.T) {
	req := guestRequest()
	req.ProductID = productA
	fields := fieldsOf(t, validateCheckout(&req, true))
	assert.Equal(t, "is required", fields["quantity"])
}

func TestValidateCheckout_TrimsContact(t *testing.T) {
	req := guestRequest(CheckoutLine{ProductID: productA, Quantity: 1})
	req.Name = "  Asha Rao  "
	req.Phone = " 9876543210 "
	require.NoError(t, validateCheckout(&req, true))
	assert.Equal(t, "Asha Rao", req.Name)
	assert.Equal(t, "9876543210", req.Phone)
}

func TestValidateCheckout_AuthenticatedContactOptional(t *testing.T) {
	req := CheckoutRequest{Items: []CheckoutLine{{ProductID: productA, Quantity: 1}}}
	assert.NoError(t, validateCheckout(&req, false))
}

func TestValidateCheckout_BadEmail(t *testing.T) {
	req := guestRequest(CheckoutLine{ProductID: productA, Quantity: 1})
	req.Email = "asha-at-example"
	fields := fieldsOf(t, validateCheckout(&req, true))
	assert.Equal(t, "must be a valid email address", fields["email"])
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"phone": "bad", "email": "worse"}}
	assert.True(t, strings.HasPrefix(err.Error(), "validation failed: email worse; phone bad"))
}
