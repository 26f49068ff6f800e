// Package payment talks to the payment provider: it opens remote payment
// orders, verifies webhook and checkout signatures, decodes webhook events
// and stores the captured-payment ledger.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number of minor units")
	ErrProvider      = errors.New("payment provider error")
)

// Session is the remote payment order created for one local order.
type Session struct {
	ProviderOrderID string `json:"id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
	Status          string `json:"status"`
}

// Client opens payment orders against a Razorpay-compatible REST API.
type Client struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	HTTP      *http.Client
	log       *slog.Logger
}

func NewClient(baseURL, keyID, keySecret string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		KeyID:     keyID,
		KeySecret: keySecret,
		HTTP:      &http.Client{Timeout: timeout},
		log:       log,
	}
}

type createOrderReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type providerError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// OpenSession creates exactly one remote order per call. There is no retry:
// a failed attempt is terminal for the checkout and the client starts over.
func (c *Client) OpenSession(ctx context.Context, amount int64, currency, receipt string) (*Session, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	body, _ := json.Marshal(createOrderReq{Amount: amount, Currency: currency, Receipt: receipt})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.KeyID, c.KeySecret)

	start := time.Now()
	res, err := c.HTTP.Do(req)
	if err != nil {
		c.log.Error("[provider] create order request failed", "receipt", receipt, "dur", time.Since(start), "err", err)
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer res.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		var pe providerError
		_ = json.Unmarshal(respBody, &pe)
		c.log.Error("[provider] create order rejected",
			"receipt", receipt, "status", res.StatusCode, "code", pe.Error.Code, "description", pe.Error.Description)
		return nil, fmt.Errorf("%w: status %d %s", ErrProvider, res.StatusCode, pe.Error.Code)
	}

	var s Session
	if err := json.Unmarshal(respBody, &s); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrProvider, err)
	}
	if s.ProviderOrderID == "" {
		return nil, fmt.Errorf("%w: empty order id", ErrProvider)
	}
	if s.Amount != amount {
		c.log.Warn("[provider] echoed amount differs", "receipt", receipt, "sent", amount, "echoed", s.Amount)
	}
	c.log.Info("[provider] order created", "provider_order_id", s.ProviderOrderID, "receipt", receipt, "dur", time.Since(start))
	return &s, nil
}

// NewReceipt builds a receipt token unique per local order. The provider
// caps receipts at 40 characters.
func NewReceipt(orderID string, now time.Time) string {
	id := strings.ReplaceAll(orderID, "-", "")
	if len(id) > 12 {
		id = id[:12]
	}
	r := "rcpt_" + strconv.FormatInt(now.UnixNano(), 36) + "_" + id
	if len(r) > 40 {
		r = r[:40]
	}
	return r
}
