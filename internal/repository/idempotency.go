package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/store"
)

type IdempotencyCacheEntry struct {
	Key          string    `json:"key"`
	UserID       uuid.UUID `json:"userId"`
	RequestHash  string    `json:"requestHash"`
	StatusCode   int       `json:"statusCode"`
	ResponseBody []byte    `json:"responseBody"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type IdempotencyRepository struct {
	store store.Store
	now   func() time.Time
}

func NewIdempotencyRepository(s store.Store) *IdempotencyRepository {
	return &IdempotencyRepository{store: s, now: time.Now}
}

func idempotencyKey(key string, userID uuid.UUID) string {
	return store.KeyIdempotency + userID.String() + ":" + key
}

// Get returns nil, nil for unknown or expired entries.
func (r *IdempotencyRepository) Get(ctx context.Context, key string, userID uuid.UUID) (*IdempotencyCacheEntry, error) {
	var e IdempotencyCacheEntry
	ok, err := store.GetJSON(ctx, r.store, idempotencyKey(key, userID), &e)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if !ok {
		return nil, nil
	}
	if !e.ExpiresAt.After(r.now()) {
		if err := r.store.Remove(ctx, idempotencyKey(key, userID)); err != nil {
			return nil, fmt.Errorf("Get: remove expired: %w", err)
		}
		return nil, nil
	}
	return &e, nil
}

// Set keeps the first entry stored for a key.
func (r *IdempotencyRepository) Set(ctx context.Context, entry *IdempotencyCacheEntry) error {
	existing, err := r.Get(ctx, entry.Key, entry.UserID)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	if existing != nil {
		return nil
	}
	if err := store.SetJSON(ctx, r.store, idempotencyKey(entry.Key, entry.UserID), entry); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}
