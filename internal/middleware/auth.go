package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hopeflow/backend/internal/auth"
	"github.com/hopeflow/backend/pkg/utils"
)

// Authenticate resolves the caller and rejects the request with 401 when no
// user can be established.
func Authenticate(resolver auth.Resolver, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				if !errors.Is(err, auth.ErrMissingToken) && !errors.Is(err, auth.ErrInvalidToken) {
					logger.Warn("auth resolver failed", zap.Error(err))
				}
				utils.RespondError(w, http.StatusUnauthorized, "user not authenticated")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
