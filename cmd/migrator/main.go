package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/josh-kwaku/pix-relay/internal/store"
)

type config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`
}

func main() {
	var migrationsPath string
	var down int
	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "path to migrations")
	flag.IntVar(&down, "down", 0, "number of migrations to roll back instead of applying")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init("pix-relay-migrator", cfg.LogLevel, cfg.AppEnv)

	if down > 0 {
		if err := store.Rollback(cfg.DatabaseURL, migrationsPath, down); err != nil {
			slog.Error("rollback failed", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations rolled back", "steps", down)
		return
	}

	applied, err := store.Migrate(cfg.DatabaseURL, migrationsPath)
	if err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if !applied {
		slog.Info("no migrations to apply")
		return
	}
	slog.Info("migrations applied successfully")
}
