package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SeedTestUser appends a user to the users key and stores its balance.
func SeedTestUser(t *testing.T, s store.Store, email, name string, role domain.Role, balance string) *domain.User {
	t.Helper()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Balance:      Dec(balance),
		CreatedAt:    time.Now().UTC(),
	}

	var users []domain.User
	if _, err := store.GetJSON(ctx, s, store.KeyUsers, &users); err != nil {
		t.Fatalf("load users: %v", err)
	}
	users = append(users, *u)
	if err := store.SetJSON(ctx, s, store.KeyUsers, users); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := s.Set(ctx, store.KeyBalancePrefix+u.ID.String(), []byte(`"`+u.Balance.String()+`"`)); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	return u
}

// SeedTestTransaction prepends tx to the ledger.
func SeedTestTransaction(t *testing.T, s store.Store, tx domain.Transaction) {
	t.Helper()
	ctx := context.Background()

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.Date == "" {
		tx.Date = domain.FormatDisplayDate(tx.CreatedAt)
	}

	var txs []domain.Transaction
	if _, err := store.GetJSON(ctx, s, store.KeyTransactions, &txs); err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	txs = append([]domain.Transaction{tx}, txs...)
	if err := store.SetJSON(ctx, s, store.KeyTransactions, txs); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
}

func GetBalance(t *testing.T, s store.Store, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	var raw string
	ok, err := store.GetJSON(context.Background(), s, store.KeyBalancePrefix+userID.String(), &raw)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !ok {
		return decimal.Zero
	}
	return Dec(raw)
}
