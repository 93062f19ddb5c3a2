package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/pkg/respond"
)

// Middleware rejects requests without a valid bearer token.
func Middleware(v *Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				respond.Error(w, r, http.StatusUnauthorized, "missing token")
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			switch {
			case err == nil:
			case errors.Is(err, ErrRevoked):
				respond.Error(w, r, http.StatusUnauthorized, "token revoked")
				return
			case errors.Is(err, ErrInvalidToken):
				logger.Debug("rejected token", zap.Error(err))
				respond.Error(w, r, http.StatusUnauthorized, "invalid token")
				return
			default:
				logger.Error("token verification failed", zap.Error(err))
				respond.Error(w, r, http.StatusInternalServerError, "internal error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
