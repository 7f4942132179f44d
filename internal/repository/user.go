package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/store"
)

type UserRepository struct {
	mu    sync.Mutex
	store store.Store
}

func NewUserRepository(s store.Store) *UserRepository {
	return &UserRepository{store: s}
}

func (r *UserRepository) load(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if _, err := store.GetJSON(ctx, r.store, store.KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return users, nil
}

func (r *UserRepository) find(ctx context.Context, op string, match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range users {
		if match(&users[i]) {
			u := users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(ctx, "GetByID", func(u *domain.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	return r.find(ctx, "GetByEmail", func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) FirstAdmin(ctx context.Context) (*domain.User, error) {
	return r.find(ctx, "FirstAdmin", func(u *domain.User) bool { return u.IsAdmin() })
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	for i := range users {
		if users[i].ID == u.ID {
			return fmt.Errorf("Create: duplicate id %s: %w", u.ID, domain.ErrInvalidRequest)
		}
		if u.Email != "" && strings.EqualFold(users[i].Email, u.Email) {
			return fmt.Errorf("Create: %w", domain.ErrEmailTaken)
		}
	}

	users = append(users, *u)
	if err := store.SetJSON(ctx, r.store, store.KeyUsers, users); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	idx := -1
	for i := range users {
		if users[i].ID == u.ID {
			idx = i
			continue
		}
		if u.Email != "" && strings.EqualFold(users[i].Email, u.Email) {
			return fmt.Errorf("Update: %w", domain.ErrEmailTaken)
		}
	}
	if idx < 0 {
		return fmt.Errorf("Update %s: %w", u.ID, domain.ErrNotFound)
	}

	users[idx] = *u
	if err := store.SetJSON(ctx, r.store, store.KeyUsers, users); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return fmt.Errorf("Delete %s: %w", id, domain.ErrNotFound)
	}

	if err := store.SetJSON(ctx, r.store, store.KeyUsers, kept); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
