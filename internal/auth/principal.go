package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/isdelr/ender-accounts/internal/store"
)

// AuthorityPrefix is prepended to stored role labels.
const AuthorityPrefix = "ROLE_"

// AuthorityAdmin is the authority derived from the ADMIN role.
const AuthorityAdmin = AuthorityPrefix + models.RoleAdmin

// Principal is the authenticated identity attached to a request. It is a
// snapshot of the user record at lookup time.
type Principal struct {
	ID          int64
	Username    string
	Email       string
	Authorities []string
}

// Equal compares principals by ID only.
func (p Principal) Equal(other Principal) bool {
	return p.ID == other.ID
}

// HasAuthority reports whether the principal was granted authority.
func (p Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// IsAdmin is shorthand for HasAuthority(AuthorityAdmin).
func (p Principal) IsAdmin() bool {
	return p.HasAuthority(AuthorityAdmin)
}

// Authorities maps bare role labels to authority labels.
func Authorities(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, AuthorityPrefix+r)
	}
	return out
}

// NewPrincipal builds a principal from a user record.
func NewPrincipal(u *models.User) Principal {
	return Principal{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Authorities: Authorities(u.Roles),
	}
}

// PrincipalStore is the lookup the resolver needs from the user store.
type PrincipalStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// PrincipalResolver turns a verified token subject into a Principal.
type PrincipalResolver struct {
	users PrincipalStore
}

func NewPrincipalResolver(users PrincipalStore) *PrincipalResolver {
	return &PrincipalResolver{users: users}
}

// Resolve loads the user named by subject. Store failures other than a
// missing record are returned wrapped, never retried.
func (r *PrincipalResolver) Resolve(ctx context.Context, subject string) (Principal, error) {
	user, err := r.users.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, ErrPrincipalNotFound
		}
		return Principal{}, fmt.Errorf("resolve principal %q: %w", subject, err)
	}
	return NewPrincipal(user), nil
}

type contextKey string

const principalKey = contextKey("principal")

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
