package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/shopspring/decimal"
)

type userMirror interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// BalanceService is the per-user balance accumulator. Every change is copied
// onto the user record so admin views see the same number.
type BalanceService struct {
	mu       sync.Mutex
	balances balanceRepo
	users    userMirror
	initial  decimal.Decimal
}

func NewBalanceService(balances balanceRepo, users userMirror, initial decimal.Decimal) *BalanceService {
	return &BalanceService{balances: balances, users: users, initial: initial}
}

func (s *BalanceService) Get(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bal, err := s.load(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Get: %w", err)
	}
	return bal, nil
}

func (s *BalanceService) load(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	bal, err := s.balances.Get(ctx, userID)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, err
	}
	if u, uerr := s.users.GetByID(ctx, userID); uerr == nil {
		return u.Balance, nil
	}
	return s.initial, nil
}

func (s *BalanceService) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("Credit: %w", domain.ErrInvalidAmount)
	}
	return s.apply(ctx, "Credit", userID, func(cur decimal.Decimal) (decimal.Decimal, error) {
		return cur.Add(amount), nil
	})
}

// Debit refuses to take the balance below zero.
func (s *BalanceService) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("Debit: %w", domain.ErrInvalidAmount)
	}
	return s.apply(ctx, "Debit", userID, func(cur decimal.Decimal) (decimal.Decimal, error) {
		if amount.GreaterThan(cur) {
			return decimal.Zero, domain.ErrInsufficientFunds
		}
		return cur.Sub(amount), nil
	})
}

func (s *BalanceService) Set(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("Set: %w", domain.ErrNegativeBalance)
	}
	return s.apply(ctx, "Set", userID, func(decimal.Decimal) (decimal.Decimal, error) {
		return amount, nil
	})
}

func (s *BalanceService) apply(ctx context.Context, op string, userID uuid.UUID, change func(decimal.Decimal) (decimal.Decimal, error)) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.load(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	next, err := change(cur)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.balances.Set(ctx, userID, next); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	s.mirror(ctx, userID, next)

	logging.FromContext(ctx).Info("balance updated",
		"op", op,
		"user_id", userID,
		"before", cur.StringFixed(2),
		"after", next.StringFixed(2),
	)
	return next, nil
}

func (s *BalanceService) mirror(ctx context.Context, userID uuid.UUID, bal decimal.Decimal) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return
	}
	u.Balance = bal
	if err := s.users.Update(ctx, u); err != nil {
		logging.FromContext(ctx).Warn("failed to mirror balance onto user", "user_id", userID, "error", err)
	}
}
