package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
)

const tokenIssuer = "pix-relay"

// Claims is what a validated session token tells us about the caller.
type Claims struct {
	UserID uuid.UUID
	Email  string
	Role   domain.Role
}

func (c *Claims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(tokenIssuer),
	jwt.WithExpirationRequired(),
	jwt.WithLeeway(5*time.Second),
)

// GenerateToken signs a session for u. The role travels in the token, so a
// role change takes effect at the next login.
func GenerateToken(u *domain.User, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: u.Email,
		Role:  string(u.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, issuer and expiry. Any role other than
// admin is read as a plain user.
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	var sc sessionClaims
	if _, err := parser.ParseWithClaims(tokenString, &sc, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	userID, err := uuid.Parse(sc.Subject)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid subject: %w", err)
	}

	role := domain.RoleUser
	if domain.Role(sc.Role) == domain.RoleAdmin {
		role = domain.RoleAdmin
	}

	return &Claims{UserID: userID, Email: sc.Email, Role: role}, nil
}
