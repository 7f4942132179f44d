package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/store"
	"github.com/shopspring/decimal"
)

type BalanceRepository struct {
	store store.Store
}

func NewBalanceRepository(s store.Store) *BalanceRepository {
	return &BalanceRepository{store: s}
}

func balanceKey(userID uuid.UUID) string {
	return store.KeyBalancePrefix + userID.String()
}

// Get returns domain.ErrNotFound when no balance was ever stored for the user.
func (r *BalanceRepository) Get(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var bal decimal.Decimal
	ok, err := store.GetJSON(ctx, r.store, balanceKey(userID), &bal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Get: %w", err)
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("Get: %w", domain.ErrNotFound)
	}
	return bal, nil
}

func (r *BalanceRepository) Set(ctx context.Context, userID uuid.UUID, bal decimal.Decimal) error {
	if err := store.SetJSON(ctx, r.store, balanceKey(userID), bal); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

func (r *BalanceRepository) Remove(ctx context.Context, userID uuid.UUID) error {
	if err := r.store.Remove(ctx, balanceKey(userID)); err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	return nil
}
