package auth

import (
	"context"

	domain "github.com/marketloop/api/internal/domain"
)

// Identity captures the authenticated principal extracted from a bearer token.
type Identity struct {
	UserID   int64
	Username string
	Role     domain.UserRole
}

// HasRole reports whether the identity carries the requested role.
func (i *Identity) HasRole(role domain.UserRole) bool {
	if i == nil {
		return false
	}
	return i.Role == role
}

// HasAnyRole reports whether the identity carries any of the provided roles.
func (i *Identity) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

type contextKey string

const identityContextKey contextKey = "github.com/marketloop/api/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
