package auth

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// PrincipalContextKey is the key for storing the Principal in a request context
	PrincipalContextKey ContextKey = "principal"
)

// Principal is the authenticated caller. Capabilities are computed once from the
// token roles when the request enters the boundary.
type Principal struct {
	UserID       uuid.UUID     `json:"user_id"`
	Name         string        `json:"nama_lengkap"`
	Roles        []string      `json:"peran"`
	Capabilities CapabilitySet `json:"-"`
}

// NewPrincipal builds a Principal and derives its capability set.
func NewPrincipal(userID uuid.UUID, name string, roles []string) *Principal {
	return &Principal{
		UserID:       userID,
		Name:         name,
		Roles:        roles,
		Capabilities: CapabilitiesForRoles(roles),
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// PrincipalFromContext returns the Principal stored in ctx, or nil when the request
// had no valid token.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, ok := ctx.Value(PrincipalContextKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}
