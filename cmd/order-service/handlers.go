package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/health"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/settlement"
)

const maxWebhookBody = 1 << 20

type validationErrorResponse struct {
	Error  string            `json:"error" example:"validation failed"`
	Fields map[string]string `json:"fields"`
}

type statusResponse struct {
	Status string `json:"status" example:"ok"`
}

type healthResponse struct {
	Status        string     `json:"status" example:"ok"`
	LastWebhookAt *time.Time `json:"last_webhook_at"`
}

type verifyResponse struct {
	OrderID  string       `json:"order_id"`
	Status   order.Status `json:"status"`
	Verified bool         `json:"verified"`
}

type orderDetail struct {
	Order    *order.Order     `json:"order"`
	Payments []payment.Record `json:"payments"`
}

func writeCheckoutError(c *gin.Context, err error) {
	var ve *order.ValidationError
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, validationErrorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, order.ErrAuthRequired):
		httpx.Fail(c, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, order.ErrUnavailable):
		httpx.Fail(c, http.StatusNotFound, "product unavailable")
	case errors.Is(err, order.ErrInsufficientStock):
		httpx.Fail(c, http.StatusConflict, "insufficient stock")
	case errors.Is(err, order.ErrInvalidTotal):
		httpx.Fail(c, http.StatusUnprocessableEntity, "invalid order total")
	case errors.Is(err, payment.ErrProvider):
		httpx.Fail(c, http.StatusBadGateway, "payment provider unavailable")
	default:
		httpx.Fail(c, http.StatusInternalServerError, "could not create order")
	}
}

// checkoutHandler godoc
// @Summary  Create an order and open a payment session
// @Tags     checkout
// @Accept   json
// @Produce  json
// @Param    body  body      order.CheckoutRequest  true  "cart or single product"
// @Success  201   {object}  order.CheckoutResponse
// @Failure  400   {object}  validationErrorResponse
// @Failure  401   {object}  httpx.HTTPError
// @Failure  404   {object}  httpx.HTTPError
// @Failure  409   {object}  httpx.HTTPError
// @Failure  422   {object}  httpx.HTTPError
// @Failure  502   {object}  httpx.HTTPError
// @Router   /checkout [post]
func checkoutHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		res, err := svc.Checkout(c.Request.Context(), order.CheckoutInput{
			Request: req,
			UserID:  auth.UserID(c),
		})
		if err != nil {
			writeCheckoutError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res.Response())
	}
}

// webhookHandler godoc
// @Summary  Receive a signed payment webhook
// @Tags     payments
// @Accept   json
// @Produce  json
// @Param    X-Razorpay-Signature  header    string  true  "hex HMAC-SHA256 of the body"
// @Success  200                   {object}  statusResponse
// @Failure  400                   {object}  httpx.HTTPError
// @Failure  500                   {object}  httpx.HTTPError
// @Router   /webhooks/razorpay [post]
func webhookHandler(engine *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
		if err != nil {
			httpx.Fail(c, http.StatusBadRequest, "unreadable body")
			return
		}
		if len(body) > maxWebhookBody {
			httpx.Fail(c, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}

		_, err = engine.Handle(c.Request.Context(), body, c.GetHeader(payment.SignatureHeader))
		var pe *payment.PayloadError
		switch {
		case err == nil:
			c.JSON(http.StatusOK, statusResponse{Status: "ok"})
		case errors.Is(err, payment.ErrMissingSignature),
			errors.Is(err, payment.ErrSignatureMismatch),
			errors.Is(err, payment.ErrSecretNotConfigured):
			httpx.Fail(c, http.StatusBadRequest, "invalid signature")
		case errors.As(err, &pe):
			httpx.Fail(c, http.StatusBadRequest, pe.Error())
		default:
			httpx.Fail(c, http.StatusInternalServerError, "settlement failed")
		}
	}
}

// verifyPaymentHandler godoc
// @Summary  Check a checkout signature and report the order status
// @Tags     payments
// @Accept   json
// @Produce  json
// @Param    body  body      order.VerifyPaymentRequest  true  "values returned by the checkout widget"
// @Success  200   {object}  verifyResponse
// @Failure  400   {object}  httpx.HTTPError
// @Failure  404   {object}  httpx.HTTPError
// @Router   /payments/verify [post]
func verifyPaymentHandler(svc *order.Service, keySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ProviderOrderID == "" || req.ProviderPaymentID == "" {
			httpx.Fail(c, http.StatusBadRequest, "razorpay_order_id and razorpay_payment_id are required")
			return
		}
		if err := payment.VerifyCheckout(req.ProviderOrderID, req.ProviderPaymentID, req.Signature, keySecret); err != nil {
			slog.Warn("[http] checkout signature rejected",
				"event", "checkout_signature_rejected", "rid", httpx.RID(c), "provider_order_id", req.ProviderOrderID)
			httpx.Fail(c, http.StatusBadRequest, "invalid signature")
			return
		}
		o, err := svc.ByProviderOrderID(c.Request.Context(), req.ProviderOrderID)
		if errors.Is(err, order.ErrNotFound) {
			httpx.Fail(c, http.StatusNotFound, "order not found")
			return
		}
		if err != nil {
			httpx.Fail(c, http.StatusInternalServerError, "lookup failed")
			return
		}
		c.JSON(http.StatusOK, verifyResponse{OrderID: o.ID, Status: o.Status, Verified: true})
	}
}

// loadVisibleOrder fetches :id and enforces that the caller owns it or is an
// admin. Other callers get 404 so order ids cannot be probed.
func loadVisibleOrder(c *gin.Context, svc *order.Service) (*order.Order, bool) {
	o, err := svc.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, order.ErrNotFound) {
		httpx.Fail(c, http.StatusNotFound, "order not found")
		return nil, false
	}
	if err != nil {
		httpx.Fail(c, http.StatusInternalServerError, "lookup failed")
		return nil, false
	}
	if !auth.IsAdmin(c) && (o.UserID == "" || o.UserID != auth.UserID(c)) {
		httpx.Fail(c, http.StatusNotFound, "order not found")
		return nil, false
	}
	return o, true
}

// getOrderHandler godoc
// @Summary  Get an order with its payments
// @Tags     orders
// @Produce  json
// @Param    id   path      string  true  "order id"
// @Success  200  {object}  orderDetail
// @Failure  404  {object}  httpx.HTTPError
// @Router   /orders/{id} [get]
func getOrderHandler(svc *order.Service, ledger payment.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, ok := loadVisibleOrder(c, svc)
		if !ok {
			return
		}
		payments, err := ledger.ListByOrder(c.Request.Context(), o.ID)
		if err != nil {
			httpx.Fail(c, http.StatusInternalServerError, "lookup failed")
			return
		}
		if payments == nil {
			payments = []payment.Record{}
		}
		c.JSON(http.StatusOK, orderDetail{Order: o, Payments: payments})
	}
}

// getOrderItemsHandler godoc
// @Summary  List order lines
// @Tags     orders
// @Produce  json
// @Param    id   path      string  true  "order id"
// @Success  200  {array}   order.Line
// @Failure  404  {object}  httpx.HTTPError
// @Router   /orders/{id}/items [get]
func getOrderItemsHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, ok := loadVisibleOrder(c, svc)
		if !ok {
			return
		}
		lines, err := svc.Lines(c.Request.Context(), o.ID)
		if err != nil {
			httpx.Fail(c, http.StatusInternalServerError, "lookup failed")
			return
		}
		if lines == nil {
			lines = []order.Line{}
		}
		c.JSON(http.StatusOK, lines)
	}
}

// listMyOrdersHandler godoc
// @Summary  List the caller's orders
// @Tags     orders
// @Produce  json
// @Param    limit   query     int  false  "page size (max 100)"
// @Param    offset  query     int  false  "offset"
// @Success  200     {array}   order.Order
// @Failure  401     {object}  httpx.HTTPError
// @Router   /orders [get]
func listMyOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		orders, err := svc.ListByUser(c.Request.Context(), auth.UserID(c), limit, offset)
		if err != nil {
			httpx.Fail(c, http.StatusInternalServerError, "lookup failed")
			return
		}
		if orders == nil {
			orders = []order.Order{}
		}
		c.JSON(http.StatusOK, orders)
	}
}

// updateOrderStatusHandler godoc
// @Summary  Apply a manual status transition (admin)
// @Tags     orders
// @Accept   json
// @Produce  json
// @Param    id    path      string                     true  "order id"
// @Param    body  body      order.UpdateStatusRequest  true  "target status"
// @Success  200   {object}  order.Order
// @Failure  400   {object}  httpx.HTTPError
// @Failure  404   {object}  httpx.HTTPError
// @Failure  409   {object}  httpx.HTTPError
// @Router   /orders/{id}/status [put]
func updateOrderStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid json")
			return
		}
		to, ok := order.ParseStatus(req.Status)
		if !ok {
			httpx.Fail(c, http.StatusBadRequest, "unknown status")
			return
		}
		o, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), to)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, o)
		case errors.Is(err, order.ErrNotFound):
			httpx.Fail(c, http.StatusNotFound, "order not found")
		case errors.Is(err, order.ErrInvalidTransition):
			httpx.Fail(c, http.StatusConflict, err.Error())
		case errors.Is(err, order.ErrStatusConflict):
			httpx.Fail(c, http.StatusConflict, "order changed, retry")
		default:
			httpx.Fail(c, http.StatusInternalServerError, "update failed")
		}
	}
}

// deleteOrderHandler godoc
// @Summary  Soft delete an order (admin)
// @Tags     orders
// @Param    id   path  string  true  "order id"
// @Success  204
// @Failure  404  {object}  httpx.HTTPError
// @Router   /orders/{id} [delete]
func deleteOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.Delete(c.Request.Context(), c.Param("id"))
		switch {
		case err == nil:
			c.Status(http.StatusNoContent)
		case errors.Is(err, order.ErrNotFound):
			httpx.Fail(c, http.StatusNotFound, "order not found")
		default:
			httpx.Fail(c, http.StatusInternalServerError, "delete failed")
		}
	}
}

// healthHandler godoc
// @Summary  Liveness and last webhook time
// @Tags     health
// @Produce  json
// @Success  200  {object}  healthResponse
// @Router   /healthz [get]
func healthHandler(clock *health.WebhookClock) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := healthResponse{Status: "ok"}
		if t, ok := clock.Last(); ok {
			resp.LastWebhookAt = &t
		}
		c.JSON(http.StatusOK, resp)
	}
}
