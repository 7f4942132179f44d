package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/store"
)

// TransactionRepository is the ledger: newest record first.
type TransactionRepository struct {
	mu    sync.Mutex
	store store.Store
}

func NewTransactionRepository(s store.Store) *TransactionRepository {
	return &TransactionRepository{store: s}
}

func (r *TransactionRepository) load(ctx context.Context) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	if _, err := store.GetJSON(ctx, r.store, store.KeyTransactions, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *TransactionRepository) List(ctx context.Context) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txs, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return txs, nil
}

// FindByRef matches either the vendor charge id or the local id.
func (r *TransactionRepository) FindByRef(ctx context.Context, ref string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txs, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindByRef: %w", err)
	}
	for i := range txs {
		if txs[i].MatchesRef(ref) {
			tx := txs[i]
			return &tx, nil
		}
	}
	return nil, fmt.Errorf("FindByRef %s: %w", ref, domain.ErrNotFound)
}

func (r *TransactionRepository) Prepend(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txs, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("Prepend: %w", err)
	}
	txs = append([]domain.Transaction{*tx}, txs...)
	if err := store.SetJSON(ctx, r.store, store.KeyTransactions, txs); err != nil {
		return fmt.Errorf("Prepend: %w", err)
	}
	return nil
}

// Save replaces the record with the same local id.
func (r *TransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	txs, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	found := false
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs[i] = *tx
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("Save %s: %w", tx.ID, domain.ErrNotFound)
	}

	if err := store.SetJSON(ctx, r.store, store.KeyTransactions, txs); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(ctx, store.KeyTransactions); err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	return nil
}
