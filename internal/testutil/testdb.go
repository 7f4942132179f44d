package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/josh-kwaku/pix-relay/internal/store"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupTestDSN starts a throwaway Postgres, applies the repo migrations and
// returns its connection URL. Skipped under -short since it needs Docker.
func SetupTestDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in short mode")
	}

	dsn := startPostgres(t)
	if _, err := store.Migrate(dsn, MigrationsDir()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return dsn
}

// OpenTestDB opens a pooled handle on dsn, closed with the test.
func OpenTestDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := store.NewPostgresDB(context.Background(), dsn, store.PoolConfig{MaxOpenConns: 5, MaxIdleConns: 2})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return OpenTestDB(t, SetupTestDSN(t))
}

// SetupTestStore is SetupTestDB wrapped in the key-value store.
func SetupTestStore(t *testing.T) *store.Postgres {
	t.Helper()
	return store.NewPostgres(SetupTestDB(t))
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pix_relay_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return dsn
}

// MigrationsDir walks up from the package under test to the repo root.
func MigrationsDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "migrations"
	}
	for range 10 {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return "migrations"
}
