package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/isdelr/ender-accounts/internal/api/render"
	"github.com/isdelr/ender-accounts/internal/apperrors"
	"github.com/rs/zerolog/log"
)

// TokenCookieName is the cookie login sets and the middleware falls back to.
const TokenCookieName = "token"

// Authenticator verifies bearer tokens and attaches the resolved principal
// to the request context.
type Authenticator struct {
	tokens   *TokenService
	resolver *PrincipalResolver
}

func NewAuthenticator(tokens *TokenService, resolver *PrincipalResolver) *Authenticator {
	return &Authenticator{tokens: tokens, resolver: resolver}
}

// Middleware protects the wrapped handler. Missing, invalid and expired
// tokens and deleted subjects all produce the same 401 response.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := extractToken(r)
		if tokenStr == "" {
			render.Error(w, r, apperrors.Unauthenticated())
			return
		}

		subject, err := a.tokens.Verify(tokenStr)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected auth token")
			render.Error(w, r, apperrors.Unauthenticated())
			return
		}

		principal, err := a.resolver.Resolve(r.Context(), subject)
		if err != nil {
			if errors.Is(err, ErrPrincipalNotFound) {
				log.Debug().Str("subject", subject).Msg("Token subject no longer exists")
				render.Error(w, r, apperrors.Unauthenticated())
				return
			}
			render.Error(w, r, apperrors.OperationFailed(err, "Failed to resolve principal"))
			return
		}

		log.Debug().Str("username", principal.Username).Int64("user_id", principal.ID).Msg("Authenticated user")
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// Require consults Decide for an operation known from the route alone.
// It must run after Middleware.
func Require(op Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				render.Error(w, r, apperrors.Unauthenticated())
				return
			}
			if Decide(principal, op) != Allow {
				render.Error(w, r, apperrors.Forbidden("You are not allowed to perform this operation."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the Authorization header, falling back to the cookie.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
