package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kodprodobro/auth-service/internal/service"
)

type contextKey string

const (
	ClaimsKey   contextKey = "claims"
	UsernameKey contextKey = "username"
	TokenKey    contextKey = "token"
)

type AuthMiddleware struct {
	auth   *service.AuthService
	logger *logrus.Logger
}

func NewAuthMiddleware(auth *service.AuthService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		logger: logger,
	}
}

// RequireAuth runs the full validation (decode, expiry, revocation check)
// on every request. All failure modes get the same generic response; the
// distinction lives in the logs only.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, "Missing authorization header")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.respondUnauthorized(w, "Invalid authorization header format")
			return
		}

		tokenString := parts[1]

		claims, err := m.auth.Validate(r.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				m.logger.Debug("Rejected expired token")
			case errors.Is(err, service.ErrTokenRevoked):
				m.logger.Debug("Rejected revoked token")
			default:
				m.logger.WithError(err).Debug("Rejected invalid token")
			}
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}

		if claims.Type != service.TokenTypeAccess {
			m.respondUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, UsernameKey, claims.Subject)
		ctx = context.WithValue(ctx, TokenKey, tokenString)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"` + message + `"}}`))
}
