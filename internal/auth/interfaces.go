package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/email"
)

// TokenClaims is what a verified session token proves.
type TokenClaims struct {
	UserID    uuid.UUID
	TokenID   string // jti, the revocation handle
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService defines the interface for token creation and validation.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, issuedAt time.Time, duration time.Duration) (string, *TokenClaims, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// EmailService sends the account lifecycle mails.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, to email.Recipient, token string) error
	SendPasswordResetEmail(ctx context.Context, to email.Recipient, token string) error
	SendWelcomeEmail(ctx context.Context, to email.Recipient) error
}

// SessionStore tracks session tokens that must no longer be accepted.
type SessionStore interface {
	Revoke(ctx context.Context, claims *TokenClaims) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) error
	IsRevoked(ctx context.Context, claims *TokenClaims) (bool, error)
}

// ProfileRemover deletes the profile and stored images of a deleted account.
type ProfileRemover interface {
	DeleteForAccount(ctx context.Context, acc *account.Account) error
}
