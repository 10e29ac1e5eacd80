package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// Errors returned by token verification and authorization checks.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidRole  = errors.New("invalid role")
)

// Role is the privilege level carried by a verified token.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// ParseRole validates s as a known role.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleCashier:
		return r, nil
	default:
		return "", errors.Wrapf(ErrInvalidRole, "%q", s)
	}
}

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	// Subject is the user or register identifier; it also keys the caller's cart.
	Subject string
	Role    Role
}

// IsAdmin reports whether the principal may perform privileged operations.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Require returns ErrForbidden unless the principal holds role.
func (p Principal) Require(role Role) error {
	if p.Role != role {
		return errors.Wrapf(ErrForbidden, "%s requires role %s", p.Subject, role)
	}
	return nil
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
