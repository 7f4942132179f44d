package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/domain"
)

type principalKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   domain.Role
}

func (p Principal) IsAdmin() bool { return p.Role == domain.RoleAdmin }

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}
