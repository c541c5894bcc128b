package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/finledger/internal/domain"
	"github.com/iho/finledger/internal/infrastructure/auth"
	"github.com/iho/finledger/internal/infrastructure/logger"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// UserIDContextKey is the context key for the authenticated user ID
	UserIDContextKey ContextKey = "user_id"
)

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's user ID in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, domain.ErrExpiredToken) {
					writeError(w, http.StatusUnauthorized, "token has expired")
					return
				}
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), claims.UserID())))
		})
	}
}

// ContextWithUserID marks ctx as authenticated for userID.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	ctx = logger.WithUserID(ctx, userID)

	l := zerolog.Ctx(ctx).With().Str("user_id", userID).Logger()
	return l.WithContext(ctx)
}

// UserIDFromContext returns the authenticated user ID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDContextKey).(string)
	return id, ok && id != ""
}
