package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies every pending up migration found in dir. It reports false
// when the schema was already current. databaseURL must be in URL form
// (postgres://...); the migrator opens its own connection.
func Migrate(databaseURL, dir string) (bool, error) {
	m, err := newMigrator(databaseURL, dir)
	if err != nil {
		return false, fmt.Errorf("Migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("Migrate: up: %w", err)
	}
	return true, nil
}

// Rollback reverts the given number of migrations.
func Rollback(databaseURL, dir string, steps int) error {
	m, err := newMigrator(databaseURL, dir)
	if err != nil {
		return fmt.Errorf("Rollback: %w", err)
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("Rollback: %w", err)
	}
	return nil
}

func newMigrator(databaseURL, dir string) (*migrate.Migrate, error) {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}
	return m, nil
}
