package middleware

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/auth"
	"github.com/frahmantamala/checkout-payments/internal/transport"
)

// RequireRole lets the request through when the authenticated claims carry
// one of roles. It must run after BearerAuth.
func RequireRole(lg *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				base.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
				return
			}

			for _, role := range roles {
				if claims.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			base.Logger.Warn("access denied: missing required role",
				"subject", claims.Subject,
				"role", claims.Role,
				"required_roles", roles)
			base.HandleError(w, errors.NewForbiddenError("insufficient role", errors.ErrCodeForbidden))
		})
	}
}
