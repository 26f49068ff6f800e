package main

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MikeMC777/storefront/docs"
	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/health"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/settlement"
)

type server struct {
	orders        *order.Service
	ledger        payment.Ledger
	engine        *settlement.Engine
	clock         *health.WebhookClock
	limiter       *httpx.RateLimiter
	keySecret     string
	sessionSecret string
	log           *slog.Logger
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(s.log))

	r.GET("/healthz", healthHandler(s.clock))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/checkout",
		httpx.RateLimit(s.limiter),
		auth.OptionalSession(s.sessionSecret),
		checkoutHandler(s.orders),
	)
	r.POST("/webhooks/razorpay", webhookHandler(s.engine))
	r.POST("/payments/verify", verifyPaymentHandler(s.orders, s.keySecret))

	orders := r.Group("/orders", auth.RequireSession(s.sessionSecret))
	{
		orders.GET("", listMyOrdersHandler(s.orders))
		orders.GET("/:id", getOrderHandler(s.orders, s.ledger))
		orders.GET("/:id/items", getOrderItemsHandler(s.orders))

		admin := orders.Group("", auth.RequireRole(auth.RoleAdmin))
		admin.PUT("/:id/status", updateOrderStatusHandler(s.orders))
		admin.DELETE("/:id", deleteOrderHandler(s.orders))
	}
	return r
}
