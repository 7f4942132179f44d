package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string        `env:"DATABASE_URL"`
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	Port        int           `env:"PORT" envDefault:"8080"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string        `env:"APP_ENV" envDefault:"production"`

	AdminPassword    string        `env:"ADMIN_PASSWORD" envDefault:"243025"`
	ProviderEndpoint string        `env:"PROVIDER_ENDPOINT" envDefault:"https://api.misticpay.com"`
	TransferTimeout  time.Duration `env:"TRANSFER_TIMEOUT" envDefault:"30s"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	PollMaxAttempts  int           `env:"POLL_MAX_ATTEMPTS" envDefault:"60"`
	PollRetention    time.Duration `env:"POLL_RETENTION" envDefault:"10m"`
	InitialBalance   string        `env:"INITIAL_BALANCE" envDefault:"100.00"`
	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	FixedIP          string        `env:"FIXED_IP"`

	EventsBackend string   `env:"EVENTS_BACKEND" envDefault:"none"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"pix.payments"`
	NATSURL       string   `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSSubject   string   `env:"NATS_SUBJECT" envDefault:"pix.payments"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch c.EventsBackend {
	case "none", "kafka", "nats":
	default:
		return fmt.Errorf("unsupported EVENTS_BACKEND %q", c.EventsBackend)
	}
	if c.EventsBackend == "kafka" && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS required when EVENTS_BACKEND=kafka")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// UsesPostgres reports whether the key-value store is backed by Postgres.
// An empty DATABASE_URL falls back to the in-memory store.
func (c Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}
