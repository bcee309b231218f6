// internal/common/auth/identity.go
package auth

import (
	"context"

	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/models"
)

// Identity is the resolved caller of a request.
type Identity struct {
	UserID string
	Role   models.Role
}

// HasRole reports whether the identity holds any of roles.
func (i *Identity) HasRole(roles ...models.Role) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// IsOwner is the single ownership predicate used by every mutating operation.
// Admins are not implicit owners.
func IsOwner(ownerID string, id *Identity) bool {
	return id != nil && ownerID != "" && id.UserID == ownerID
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by the session middleware, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// RequireIdentity fails with UNAUTHENTICATED when the request carries no session.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return nil, apperrors.NewUnauthenticatedError("missing or expired session")
	}
	return id, nil
}

// RequireRole fails with FORBIDDEN unless the identity holds one of roles.
func RequireRole(id *Identity, roles ...models.Role) error {
	if !id.HasRole(roles...) {
		return apperrors.NewForbiddenError("insufficient role for this operation")
	}
	return nil
}
