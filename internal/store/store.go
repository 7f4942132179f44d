package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/josh-kwaku/pix-relay/internal/domain"
)

// Fixed keys. Balances are suffixed with the owning user id.
const (
	KeyProviderConfig = "misticpay_config"
	KeyUsers          = "e18pix_users"
	KeyTransactions   = "e18pix_transactions"
	KeyBalancePrefix  = "e18pix_balance:"
	KeyIdempotency    = "e18pix_idempotency:"
)

// Store is the persistence seam every repository is built on.
// Get returns domain.ErrNotFound for unknown keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// GetJSON decodes key into dst. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("GetJSON %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("GetJSON %s: decode: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("SetJSON %s: encode: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("SetJSON %s: %w", key, err)
	}
	return nil
}
