package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/josh-kwaku/pix-relay/internal/store"
)

// ProviderConfigRepository is the configuration store. Reads hit an in-memory
// cache first; if the backing store rejects a write the cached value still
// serves every later read.
type ProviderConfigRepository struct {
	mu              sync.RWMutex
	store           store.Store
	cache           *domain.ProviderConfig
	defaultEndpoint string
}

func NewProviderConfigRepository(s store.Store, defaultEndpoint string) *ProviderConfigRepository {
	return &ProviderConfigRepository{store: s, defaultEndpoint: defaultEndpoint}
}

// Get never fails: with nothing saved it returns the placeholder config.
func (r *ProviderConfigRepository) Get(ctx context.Context) domain.ProviderConfig {
	r.mu.RLock()
	if r.cache != nil {
		cfg := *r.cache
		r.mu.RUnlock()
		return cfg
	}
	r.mu.RUnlock()

	var cfg domain.ProviderConfig
	ok, err := store.GetJSON(ctx, r.store, store.KeyProviderConfig, &cfg)
	if err != nil {
		logging.FromContext(ctx).Warn("provider config unreadable, using defaults", "error", err)
		return domain.DefaultProviderConfig(r.defaultEndpoint)
	}
	if !ok {
		return domain.DefaultProviderConfig(r.defaultEndpoint)
	}

	r.mu.Lock()
	r.cache = &cfg
	r.mu.Unlock()
	return cfg
}

func (r *ProviderConfigRepository) Save(ctx context.Context, cfg domain.ProviderConfig) error {
	if cfg.Endpoint == "" {
		cfg.Endpoint = r.defaultEndpoint
	}

	r.mu.Lock()
	r.cache = &cfg
	r.mu.Unlock()

	if err := store.SetJSON(ctx, r.store, store.KeyProviderConfig, cfg); err != nil {
		logging.FromContext(ctx).Warn("provider config kept in memory only", "error", err)
	}
	return nil
}

func (r *ProviderConfigRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.cache = nil
	r.mu.Unlock()

	if err := r.store.Remove(ctx, store.KeyProviderConfig); err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	return nil
}
