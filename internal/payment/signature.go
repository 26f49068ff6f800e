package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the hex HMAC of the raw webhook body.
const SignatureHeader = "X-Razorpay-Signature"

var (
	ErrMissingSignature    = errors.New("signature header missing")
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrSignatureMismatch   = errors.New("signature mismatch")
)

// Sign returns the hex HMAC-SHA256 of msg under secret.
func Sign(msg []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook authenticates the raw, undecoded request body. It must run
// before the body is parsed.
func VerifyWebhook(rawBody []byte, signature, secret string) error {
	if secret == "" {
		return ErrSecretNotConfigured
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	expected := Sign(rawBody, secret)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyCheckout checks the signature the checkout widget returns to the
// browser: HMAC(order_id + "|" + payment_id) under the key secret.
func VerifyCheckout(providerOrderID, providerPaymentID, signature, keySecret string) error {
	if keySecret == "" {
		return ErrSecretNotConfigured
	}
	if signature == "" {
		return ErrMissingSignature
	}
	expected := Sign([]byte(providerOrderID+"|"+providerPaymentID), keySecret)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return ErrSignatureMismatch
	}
	return nil
}
