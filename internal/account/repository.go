package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository is the persistence collaborator for accounts. Every mutation is
// a single conditional update so concurrent requests cannot interleave a
// read-modify-write on the same document.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, u DetailsUpdate) (*Account, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error

	// RecordLoginFailure applies LockoutPolicy.AfterFailure atomically and
	// returns the resulting state.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, policy LockoutPolicy, now time.Time) (LockState, error)
	// RecordLoginSuccess clears lockout state and stamps last login.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, now time.Time) error

	// SetVerificationToken stores a pending verification secret for an
	// unverified account.
	SetVerificationToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error
	// ConsumeVerificationToken marks the matching unexpired account verified
	// and clears the token in the same update. ErrNotFound if none matches.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*Account, error)

	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error
	// ConsumeResetToken swaps in the new password hash, clears the reset
	// token and lockout state in one update. ErrNotFound if none matches.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*Account, error)
}
