package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/httputil"
	"github.com/redmonkez12/viziopath-api/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	UserIDContextKey ContextKey = "user_id"
	ClaimsContextKey ContextKey = "token_claims"
)

// Middleware handles authentication for protected routes
type Middleware struct {
	tokenService TokenService
	sessions     SessionStore
	cookies      CookieConfig
}

func NewMiddleware(tokenService TokenService, sessions SessionStore, cookies CookieConfig) *Middleware {
	return &Middleware{tokenService: tokenService, sessions: sessions, cookies: cookies}
}

// RequireAuth validates the session token from the cookie or the bearer
// header and rejects revoked tokens.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.GetLoggerFromContext(r.Context())

		token, err := m.cookies.TokenFromRequest(r)
		if err != nil {
			httputil.RespondError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.VerifyToken(token)
		if err != nil {
			httputil.RespondError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		revoked, err := m.sessions.IsRevoked(r.Context(), claims)
		if err != nil {
			logger.Error("failed to check session revocation", "error", err)
			httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if revoked {
			httputil.RespondError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, claims.UserID)
		ctx = context.WithValue(ctx, ClaimsContextKey, claims)
		ctx = logging.WithLogger(ctx, logger.With("user_id", claims.UserID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// GetClaimsFromContext extracts the verified token claims from the request context
func GetClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*TokenClaims)
	return claims, ok
}

// MustUserID is for handlers mounted behind RequireAuth.
func MustUserID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}
