package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/MikeMC777/storefront/internal/config"
	"github.com/MikeMC777/storefront/internal/customer"
	"github.com/MikeMC777/storefront/internal/database"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[user-service] config", "err", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("service", "user-service")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("[user-service] database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	l, err := net.Listen("tcp", cfg.UserSvcListenAddr)
	if err != nil {
		log.Error("[user-service] listen", "addr", cfg.UserSvcListenAddr, "err", err)
		os.Exit(1)
	}

	srv := grpc.NewServer()
	srv.RegisterService(&customer.DirectoryServiceDesc, customer.NewService(customer.NewPGRepo(pool)))

	go func() {
		<-ctx.Done()
		log.Info("[user-service] shutting down")
		srv.GracefulStop()
	}()

	log.Info("[user-service] listening", "addr", cfg.UserSvcListenAddr)
	if err := srv.Serve(l); err != nil {
		log.Error("[user-service] serve", "err", err)
	}
}
