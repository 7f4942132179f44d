package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/pix-relay/internal/logging"
)

type config struct {
	Port          int    `env:"MOCK_PORT" envDefault:"8081"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	CompleteAfter int    `env:"MOCK_COMPLETE_AFTER" envDefault:"3"`
	Balance       string `env:"MOCK_BALANCE" envDefault:"1000.00"`
	BlockedIP     string `env:"MOCK_BLOCKED_IP" envDefault:"203.0.113.7"`
}

func main() {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("mock-provider", cfg.LogLevel, cfg.AppEnv)

	balance, err := decimal.NewFromString(cfg.Balance)
	if err != nil {
		slog.Error("invalid MOCK_BALANCE", "value", cfg.Balance, "error", err)
		os.Exit(1)
	}

	p := newProvider(balance, cfg.CompleteAfter, cfg.BlockedIP)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.routes(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("mock provider started", "addr", addr, "complete_after", cfg.CompleteAfter)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
