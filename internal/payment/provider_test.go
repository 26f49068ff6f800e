package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSession_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "secret", pass)

		var in createOrderReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, int64(300000), in.Amount)
		assert.Equal(t, "INR", in.Currency)
		assert.Equal(t, "rcpt_1", in.Receipt)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_abc", "entity": "order", "amount": in.Amount, "currency": in.Currency,
			"receipt": in.Receipt, "status": "created",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "rzp_test", "secret", 2*time.Second, nil)
	s, err := c.OpenSession(context.Background(), 300000, "INR", "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", s.ProviderOrderID)
	assert.Equal(t, int64(300000), s.Amount)
	assert.Equal(t, "INR", s.Currency)
}

func TestOpenSession_RejectsNonPositiveAmountWithoutCalling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s", time.Second, nil)
	_, err := c.OpenSession(context.Background(), 0, "INR", "r")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestOpenSession_ProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too low"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s", time.Second, nil)
	_, err := c.OpenSession(context.Background(), 100, "INR", "r")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProvider))
	assert.Contains(t, err.Error(), "BAD_REQUEST_ERROR")
}

func TestOpenSession_TimeoutIsProviderError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "k", "s", 50*time.Millisecond, nil)
	_, err := c.OpenSession(context.Background(), 100, "INR", "r")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestNewReceipt(t *testing.T) {
	now := time.Unix(1700000000, 123)
	a := NewReceipt("6f1c2a8e-1111-4222-8333-444455556666", now)
	b := NewReceipt("0a0b0c0d-1111-4222-8333-444455556666", now)
	assert.LessOrEqual(t, len(a), 40)
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "rcpt_")
}
