package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/pix-relay/internal/config"
	"github.com/josh-kwaku/pix-relay/internal/events"
	"github.com/josh-kwaku/pix-relay/internal/gateway"
	"github.com/josh-kwaku/pix-relay/internal/handler"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/josh-kwaku/pix-relay/internal/middleware"
	"github.com/josh-kwaku/pix-relay/internal/pricing"
	"github.com/josh-kwaku/pix-relay/internal/reconciler"
	"github.com/josh-kwaku/pix-relay/internal/repository"
	"github.com/josh-kwaku/pix-relay/internal/service"
	"github.com/josh-kwaku/pix-relay/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("pix-relay", cfg.LogLevel, cfg.AppEnv)

	initialBalance, err := decimal.NewFromString(cfg.InitialBalance)
	if err != nil {
		slog.Error("invalid INITIAL_BALANCE", "value", cfg.InitialBalance, "error", err)
		os.Exit(1)
	}

	kv, backend, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	publisher, err := events.New(cfg)
	if err != nil {
		slog.Error("failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	userRepo := repository.NewUserRepository(kv)
	balanceRepo := repository.NewBalanceRepository(kv)
	txRepo := repository.NewTransactionRepository(kv)
	providerRepo := repository.NewProviderConfigRepository(kv, cfg.ProviderEndpoint)
	idempotencyRepo := repository.NewIdempotencyRepository(kv)

	rules := pricing.NewRules()
	client := gateway.NewClient(providerRepo, cfg.ProviderEndpoint, cfg.TransferTimeout)

	balanceSvc := service.NewBalanceService(balanceRepo, userRepo, initialBalance)
	ledgerSvc := service.NewLedgerService(txRepo, balanceSvc, publisher)
	poller := reconciler.New(client, ledgerSvc, rules, cfg.PollInterval, cfg.PollMaxAttempts,
		reconciler.WithEvents(publisher),
		reconciler.WithRetention(cfg.PollRetention),
	)
	pixSvc := service.NewPixService(client, ledgerSvc, balanceSvc, poller, rules, publisher)
	userSvc := service.NewUserService(userRepo, balanceSvc, balanceRepo, cfg.AdminPassword, initialBalance)
	providerSvc := service.NewProviderConfigService(providerRepo)

	authHandler := handler.NewAuthHandler(userSvc, cfg.JWTSecret, cfg.JWTExpiry)
	userHandler := handler.NewUserHandler(userSvc)
	pixHandler := handler.NewPixHandler(pixSvc, client)
	adminHandler := handler.NewAdminHandler(userSvc, providerSvc, pixSvc)
	webhookHandler := handler.NewWebhookHandler(cfg.WebhookSecret)
	healthHandler := handler.NewHealthHandler(kv, backend)

	authMw := middleware.Auth(cfg.JWTSecret)
	idemMw := middleware.Idempotency(idempotencyRepo)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMw(middleware.RequireAdmin(h))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("GET /api/v1/server-ip", handler.ServerIP(cfg.FixedIP))
	mux.HandleFunc("GET /docs/openapi.yaml", handler.ServeOpenAPI())
	mux.HandleFunc("GET /docs", handler.ServeDocs())

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("GET /api/v1/users/me", authMw(http.HandlerFunc(userHandler.Me)))
	mux.Handle("GET /api/v1/balance", authMw(http.HandlerFunc(pixHandler.Balance)))
	mux.Handle("GET /api/v1/transactions", authMw(http.HandlerFunc(pixHandler.History)))
	mux.Handle("POST /api/v1/transactions/{id}/charge", authMw(http.HandlerFunc(pixHandler.RegenerateCharge)))

	mux.Handle("POST /api/v1/pix/transfers", authMw(idemMw(http.HandlerFunc(pixHandler.Transfer))))
	mux.Handle("POST /api/v1/pix/charges", authMw(idemMw(http.HandlerFunc(pixHandler.CreateCharge))))
	mux.Handle("GET /api/v1/pix/charges/{ref}/status", authMw(http.HandlerFunc(pixHandler.ChargeStatus)))
	mux.Handle("GET /api/v1/pix/charges/{ref}/polling", authMw(http.HandlerFunc(pixHandler.PollingState)))
	mux.Handle("DELETE /api/v1/pix/charges/{ref}/polling", authMw(http.HandlerFunc(pixHandler.StopPolling)))
	mux.Handle("POST /api/v1/pix/charges/{ref}/confirm", authMw(http.HandlerFunc(pixHandler.ConfirmReceived)))

	mux.HandleFunc("POST /api/v1/webhooks/pix", webhookHandler.ReceivePixWebhook)
	mux.HandleFunc("GET /api/v1/webhooks/pix", webhookHandler.WebhookStatus)

	mux.Handle("GET /api/v1/admin/provider-config", admin(adminHandler.GetProviderConfig))
	mux.Handle("PUT /api/v1/admin/provider-config", admin(adminHandler.SaveProviderConfig))
	mux.Handle("DELETE /api/v1/admin/provider-config", admin(adminHandler.ClearProviderConfig))
	mux.Handle("GET /api/v1/admin/users", admin(adminHandler.ListUsers))
	mux.Handle("PATCH /api/v1/admin/users/{id}", admin(adminHandler.UpdateUser))
	mux.Handle("DELETE /api/v1/admin/users/{id}", admin(adminHandler.DeleteUser))
	mux.Handle("POST /api/v1/admin/users/{id}/balance", admin(adminHandler.AdjustBalance))
	mux.Handle("DELETE /api/v1/admin/transactions", admin(adminHandler.ClearTransactions))
	mux.Handle("POST /api/v1/admin/transactions/{ref}/status", admin(adminHandler.SetTransactionStatus))

	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.Logging(h)
	h = middleware.Tracing(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.TransferTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "store", backend, "events", cfg.EventsBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	poller.Shutdown()
	slog.Info("server stopped", "active_polls", poller.Active())
}

func openStore(cfg *config.Config) (store.Store, string, func(), error) {
	if !cfg.UsesPostgres() {
		return store.NewMemory(), "memory", func() {}, nil
	}

	db, err := connectDB(cfg)
	if err != nil {
		return nil, "", nil, err
	}
	return store.NewPostgres(db), "postgres", func() { db.Close() }, nil
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := store.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		db, openErr := store.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if openErr == nil {
			return db, nil
		}
		err = openErr
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
