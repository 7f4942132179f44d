package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// AdminDefaultID is the admin created on first admin login when no admin exists.
var AdminDefaultID = uuid.MustParse("00000000-0000-0000-0000-0000000000ad")

type User struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"passwordHash,omitempty"`
	Role         Role            `json:"role"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
