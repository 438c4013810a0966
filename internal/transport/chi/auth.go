package chi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gekina/medichat/internal/auth"
	"github.com/gekina/medichat/internal/domain"
)

// TokenVerifier validates bearer tokens into principals.
type TokenVerifier interface {
	Verify(token string) (domain.Principal, error)
}

// AccountReader resolves the stored account for role checks.
type AccountReader interface {
	Get(ctx context.Context, username string) (domain.Account, error)
}

// RequireUser returns a middleware that validates the Bearer token and puts
// the principal into the request context.
func RequireUser(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(header, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			principal, err := tokens.Verify(header[len(bearerPrefix):])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Token invalid")
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns a middleware that checks the STORED role of the
// authenticated principal, so a demotion takes effect before the token
// expires. The reserved admin account passes regardless of its stored role.
// Must run inside RequireUser.
func RequireAdmin(accounts AccountReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := auth.FromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Token invalid")
				return
			}

			acct, err := accounts.Get(r.Context(), principal.Username)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					writeError(w, http.StatusForbidden, "Akses ditolak.")
					return
				}
				writeError(w, http.StatusInternalServerError, "Server error")
				return
			}

			if acct.EffectiveRole() != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, "Akses ditolak.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
