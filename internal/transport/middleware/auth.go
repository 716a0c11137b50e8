package middleware

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/auth"
	"github.com/frahmantamala/checkout-payments/internal/transport"
	"github.com/frahmantamala/checkout-payments/pkg/logger"
)

// BearerAuth validates the Authorization bearer token and stores its claims in
// the request context. Requests without a valid token get 401.
func BearerAuth(validator auth.TokenValidator, lg *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(lg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := base.ExtractTokenFromHeader(r)
			if token == "" {
				base.HandleError(w, errors.NewUnauthorizedError("missing bearer token", errors.ErrCodeInvalidToken))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				if stderrors.Is(err, auth.ErrTokenExpired) {
					base.HandleError(w, errors.ErrTokenExpired)
					return
				}
				base.HandleError(w, errors.ErrInvalidToken)
				return
			}

			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = errors.ContextWithAdminSubject(ctx, claims.Subject)
			ctx = logger.With(ctx, "admin", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
