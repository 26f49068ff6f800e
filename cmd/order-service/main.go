package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/config"
	"github.com/MikeMC777/storefront/internal/customer"
	"github.com/MikeMC777/storefront/internal/database"
	"github.com/MikeMC777/storefront/internal/health"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/payment"
	"github.com/MikeMC777/storefront/internal/product"
	"github.com/MikeMC777/storefront/internal/settlement"
)

// @title    Storefront order-service API
// @version  1.0
// @description  Checkout intake and payment webhook settlement.
// @BasePath /
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[order-service] config", "err", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", "order-service")
	slog.SetDefault(log)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("[order-service] database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Error("[order-service] migrate", "err", err)
		os.Exit(1)
	}

	catalog := product.NewPGRepo(pool)
	adjuster := product.NewAdjuster(catalog, log)
	orderRepo := order.NewPGRepo(pool)
	ledger := payment.NewPGLedger(pool)
	provider := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Timeout, log)

	opts := order.Options{
		Currency:  cfg.Payment.Currency,
		KeyID:     cfg.Payment.KeyID,
		Restocker: adjuster,
		Logger:    log,
	}
	if cfg.UserSvcAddr != "" {
		dir, err := customer.Dial(cfg.UserSvcAddr)
		if err != nil {
			log.Error("[order-service] customer directory", "addr", cfg.UserSvcAddr, "err", err)
			os.Exit(1)
		}
		defer dir.Close()
		opts.Profiles = dir
	}
	orders := order.NewService(orderRepo, product.NewResolver(catalog), provider, opts)

	clock := &health.WebhookClock{}
	engine := settlement.NewEngine(orderRepo, ledger, adjuster, settlement.Options{
		WebhookSecret:   cfg.Payment.WebhookSecret,
		InventoryBudget: cfg.Payment.InventoryBudget,
		Clock:           clock,
		Logger:          log,
	})

	s := &server{
		orders:        orders,
		ledger:        ledger,
		engine:        engine,
		clock:         clock,
		limiter:       httpx.NewRateLimiter(cfg.Checkout.RatePerMinute),
		keySecret:     cfg.Payment.KeySecret,
		sessionSecret: cfg.Session.Secret,
		log:           log,
	}
	srv := &http.Server{
		Addr:              cfg.OrderSvcAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("[order-service] listening", "addr", cfg.OrderSvcAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("[order-service] listen", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("[order-service] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("[order-service] shutdown", "err", err)
	}
	if err := engine.Wait(shutdownCtx); err != nil {
		log.Warn("[order-service] background inventory work still running", "err", err)
	}
}
