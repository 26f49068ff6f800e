package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "key-secret")
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "hook-secret")
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "x")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissing))
	assert.Contains(t, err.Error(), "RAZORPAY_KEY_ID")
	assert.Contains(t, err.Error(), "RAZORPAY_KEY_SECRET")
	assert.NotContains(t, err.Error(), "RAZORPAY_WEBHOOK_SECRET")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_PROVIDER_TIMEOUT", "")
	t.Setenv("INVENTORY_BUDGET", "")
	t.Setenv("CURRENCY", "")
	t.Setenv("RAZORPAY_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Payment.InventoryBudget)
	assert.Equal(t, "https://api.razorpay.com", cfg.Payment.BaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PAYMENT_PROVIDER_TIMEOUT", "2s")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("RAZORPAY_BASE_URL", "http://localhost:9999/")
	t.Setenv("CHECKOUT_RATE_PER_MIN", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "USD", cfg.Payment.Currency)
	assert.Equal(t, "http://localhost:9999", cfg.Payment.BaseURL)
	assert.Equal(t, 5, cfg.Checkout.RatePerMinute)
}

func TestLoad_BadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("INVENTORY_BUDGET", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVENTORY_BUDGET")
}
