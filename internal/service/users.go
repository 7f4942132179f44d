package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
	"github.com/josh-kwaku/pix-relay/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminDefaultName  = "Administrador"
	adminDefaultEmail = "admin@e18pix.com"
	minPasswordLength = 6
)

type balanceSetter interface {
	balanceAccumulator
	Set(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type UserService struct {
	users         userRepo
	balances      balanceSetter
	balanceKeys   balanceRepo
	adminPassword string
	initial       decimal.Decimal
	bcryptCost    int
}

func NewUserService(users userRepo, balances balanceSetter, balanceKeys balanceRepo, adminPassword string, initial decimal.Decimal) *UserService {
	return &UserService{
		users:         users,
		balances:      balances,
		balanceKeys:   balanceKeys,
		adminPassword: adminPassword,
		initial:       initial,
		bcryptCost:    bcrypt.DefaultCost,
	}
}

type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || !strings.Contains(email, "@") || len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("Register: %w", domain.ErrInvalidRequest)
	}

	role := req.Role
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Balance:      s.initial,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	if _, err := s.balances.Set(ctx, u.ID, s.initial); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	logging.FromContext(ctx).Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login authenticates by email and password. An empty email is the admin
// gate, checked against the configured admin password.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return s.AdminLogin(ctx, password)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Login: %w", domain.ErrInvalidLogin)
		}
		return nil, fmt.Errorf("Login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Login: %w", domain.ErrInvalidLogin)
	}
	return u, nil
}

// AdminLogin signs in as the first admin, creating the default admin when
// none exists yet.
func (s *UserService) AdminLogin(ctx context.Context, password string) (*domain.User, error) {
	if s.adminPassword == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
		return nil, fmt.Errorf("AdminLogin: %w", domain.ErrInvalidLogin)
	}

	u, err := s.users.FirstAdmin(ctx)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("AdminLogin: %w", err)
	}

	u = &domain.User{
		ID:        domain.AdminDefaultID,
		Name:      adminDefaultName,
		Email:     adminDefaultEmail,
		Role:      domain.RoleAdmin,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("AdminLogin: %w", err)
	}
	if _, err := s.balances.Set(ctx, u.ID, decimal.Zero); err != nil {
		return nil, fmt.Errorf("AdminLogin: %w", err)
	}

	logging.FromContext(ctx).Info("default admin created", "user_id", u.ID)
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	for i := range users {
		if bal, err := s.balances.Get(ctx, users[i].ID); err == nil {
			users[i].Balance = bal
		}
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if bal, err := s.balances.Get(ctx, id); err == nil {
		u.Balance = bal
	}
	return u, nil
}

type UserUpdate struct {
	Name  *string
	Email *string
	Role  *domain.Role
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, upd UserUpdate) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("Update: empty name: %w", domain.ErrInvalidRequest)
		}
		u.Name = name
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if !strings.Contains(email, "@") {
			return nil, fmt.Errorf("Update: invalid email: %w", domain.ErrInvalidRequest)
		}
		if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != id {
			return nil, fmt.Errorf("Update: %w", domain.ErrEmailTaken)
		}
		u.Email = email
	}
	if upd.Role != nil {
		switch *upd.Role {
		case domain.RoleAdmin, domain.RoleUser:
			u.Role = *upd.Role
		default:
			return nil, fmt.Errorf("Update: unknown role %q: %w", *upd.Role, domain.ErrInvalidRequest)
		}
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	logging.FromContext(ctx).Info("user updated", "user_id", id)
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := s.balanceKeys.Remove(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("failed to remove balance key", "user_id", id, "error", err)
	}
	logging.FromContext(ctx).Info("user deleted", "user_id", id)
	return nil
}

type BalanceOp string

const (
	BalanceOpSet    BalanceOp = "set"
	BalanceOpAdd    BalanceOp = "add"
	BalanceOpRemove BalanceOp = "remove"
)

// AdjustBalance is the admin balance editor. Remove may not take the balance
// below zero.
func (s *UserService) AdjustBalance(ctx context.Context, id uuid.UUID, op BalanceOp, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("AdjustBalance: %w", domain.ErrInvalidAmount)
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return decimal.Zero, fmt.Errorf("AdjustBalance: %w", err)
	}

	var (
		bal decimal.Decimal
		err error
	)
	switch op {
	case BalanceOpSet:
		bal, err = s.balances.Set(ctx, id, amount)
	case BalanceOpAdd:
		bal, err = s.balances.Credit(ctx, id, amount)
	case BalanceOpRemove:
		bal, err = s.balances.Debit(ctx, id, amount)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			err = domain.ErrNegativeBalance
		}
	default:
		err = fmt.Errorf("unknown operation %q: %w", op, domain.ErrInvalidRequest)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("AdjustBalance: %w", err)
	}
	return bal, nil
}
