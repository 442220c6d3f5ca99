package auth

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
)

type claimsKey struct{}

// WithClaims stores verified claims on ctx
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the verified claims, or nil
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

// ClaimsPolicy answers permission checks from the permissions carried in the
// caller's token.
type ClaimsPolicy struct{}

// NewClaimsPolicy creates a new ClaimsPolicy
func NewClaimsPolicy() *ClaimsPolicy {
	return &ClaimsPolicy{}
}

// CanPerform denies when no claims are present or they belong to another
// actor. The resource is not consulted; permissions are per action.
func (p *ClaimsPolicy) CanPerform(ctx context.Context, actor shared.RequestScope, action shared.Action, _ string) (bool, error) {
	claims := ClaimsFromContext(ctx)
	if claims == nil || claims.UserID != actor.ActorID.String() {
		return false, nil
	}
	return claims.HasPermission(string(action)), nil
}

var _ shared.Policy = (*ClaimsPolicy)(nil)
