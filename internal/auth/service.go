package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/email"
	"github.com/redmonkez12/viziopath-api/internal/logging"
	"github.com/redmonkez12/viziopath-api/internal/password"
)

// Config carries the account-security policy.
type Config struct {
	TokenDuration   time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	Lockout         account.LockoutPolicy
}

// Session is a freshly issued session token and the account it belongs to.
type Session struct {
	Account *account.Account
	Token   string
	Claims  *TokenClaims
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Service handles authentication business logic
type Service struct {
	accounts      account.Repository
	profiles      ProfileRemover
	hasher        *password.Hasher
	tokens        TokenService
	sessions      SessionStore
	emails        EmailService
	verification  *SecretGenerator
	reset         *SecretGenerator
	lockout       account.LockoutPolicy
	tokenDuration time.Duration
	now           func() time.Time
}

func NewService(
	accounts account.Repository,
	profiles ProfileRemover,
	hasher *password.Hasher,
	tokens TokenService,
	sessions SessionStore,
	emails EmailService,
	cfg Config,
) *Service {
	return &Service{
		accounts:      accounts,
		profiles:      profiles,
		hasher:        hasher,
		tokens:        tokens,
		sessions:      sessions,
		emails:        emails,
		verification:  NewSecretGenerator(cfg.VerificationTTL),
		reset:         NewSecretGenerator(cfg.ResetTTL),
		lockout:       cfg.Lockout,
		tokenDuration: cfg.TokenDuration,
		now:           time.Now,
	}
}

// Register creates an unverified account, mails its verification link and
// opens a session. A failed mail does not fail the registration; emailSent
// reports it instead.
func (s *Service) Register(ctx context.Context, in RegisterInput) (session *Session, emailSent bool, err error) {
	name := strings.TrimSpace(in.Name)
	addr := NormalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	if name == "" || addr == "" || in.Password == "" {
		return nil, false, ErrRegisterFieldsRequired
	}
	if err := validateName(name); err != nil {
		return nil, false, err
	}
	if err := validateEmail(addr); err != nil {
		return nil, false, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, false, err
	}
	if err := validatePhone(phone); err != nil {
		return nil, false, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}

	token, digest, expires, err := s.verification.Generate()
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	acc := &account.Account{
		ID:                    uuid.New(),
		Name:                  name,
		Email:                 addr,
		PasswordHash:          hash,
		Role:                  account.RoleUser,
		Preferences:           account.DefaultPreferences(),
		VerificationTokenHash: &digest,
		VerificationExpires:   &expires,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if phone != "" {
		acc.Phone = &phone
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}

	emailSent = s.deliver(ctx, email.TemplateVerification, acc, func(ctx context.Context) error {
		return s.emails.SendVerificationEmail(ctx, recipient(acc), token)
	})

	session, err = s.issueSession(acc)
	if err != nil {
		return nil, false, err
	}

	return session, emailSent, nil
}

// Login checks credentials and drives the lockout state machine. A locked
// account is refused before the password is looked at.
func (s *Service) Login(ctx context.Context, emailAddr, plaintext string) (*Session, error) {
	addr := NormalizeEmail(emailAddr)
	if addr == "" || plaintext == "" {
		return nil, ErrLoginFieldsRequired
	}

	acc, err := s.accounts.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	now := s.now()
	if acc.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if !s.hasher.Verify(acc.PasswordHash, plaintext) {
		state, err := s.accounts.RecordLoginFailure(ctx, acc.ID, s.lockout, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record login failure: %w", err)
		}
		if state.Locked(now) {
			logging.GetLoggerFromContext(ctx).Warn("account locked after repeated login failures",
				"user_id", acc.ID,
				"attempts", state.Attempts,
				"lock_until", state.LockUntil,
			)
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.accounts.RecordLoginSuccess(ctx, acc.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	acc.LoginAttempts = 0
	acc.LockUntil = nil
	acc.LastLogin = &now

	return s.issueSession(acc)
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	return s.accounts.GetByID(ctx, userID)
}

// UpdateProfile applies a partial update of the account's basic fields.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, u account.DetailsUpdate) (*account.Account, error) {
	if err := validateDetails(&u); err != nil {
		return nil, err
	}

	acc, err := s.accounts.UpdateDetails(ctx, userID, u)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return acc, nil
}

// ChangePassword rotates the password of a signed-in account. Every other
// session is revoked and the caller gets a fresh one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) (*Session, error) {
	if current == "" || next == "" {
		return nil, ErrPasswordFieldsRequired
	}
	if err := validatePassword(next); err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(acc.PasswordHash, current) {
		return nil, ErrCurrentPasswordIncorrect
	}

	changed, err := s.setPassword(ctx, acc, next)
	if err != nil {
		return nil, err
	}
	if !changed {
		return s.issueSession(acc)
	}

	cutoff := sessionCutoff(s.now())
	s.revokeAll(ctx, acc.ID, cutoff)
	return s.issueSessionAt(acc, cutoff)
}

// ForgotPassword stores and mails a reset token when the account exists. The
// caller cannot tell whether it did.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	addr := NormalizeEmail(emailAddr)
	if addr == "" {
		return ErrEmailRequired
	}

	logger := logging.GetLoggerFromContext(ctx)

	acc, err := s.accounts.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	token, digest, expires, err := s.reset.Generate()
	if err != nil {
		return err
	}

	if err := s.accounts.SetResetToken(ctx, acc.ID, digest, expires); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.deliver(ctx, email.TemplatePasswordReset, acc, func(ctx context.Context) error {
		return s.emails.SendPasswordResetEmail(ctx, recipient(acc), token)
	})

	return nil
}

// ResetPassword consumes a reset token and sets the new password in the same
// update, then revokes outstanding sessions.
func (s *Service) ResetPassword(ctx context.Context, token, next string) error {
	if token == "" || next == "" {
		return ErrResetFieldsRequired
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	acc, err := s.accounts.ConsumeResetToken(ctx, HashToken(token), hash, now)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}

	s.revokeAll(ctx, acc.ID, sessionCutoff(now))
	return nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*account.Account, error) {
	if token == "" {
		return nil, ErrVerificationRequired
	}

	acc, err := s.accounts.ConsumeVerificationToken(ctx, HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrInvalidVerificationToken
		}
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}

	s.deliver(ctx, email.TemplateWelcome, acc, func(ctx context.Context) error {
		return s.emails.SendWelcomeEmail(ctx, recipient(acc))
	})

	return acc, nil
}

// ResendVerification replaces the pending verification token and mails it.
func (s *Service) ResendVerification(ctx context.Context, emailAddr string) (emailSent bool, err error) {
	addr := NormalizeEmail(emailAddr)
	if addr == "" {
		return false, ErrEmailRequired
	}

	acc, err := s.accounts.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("failed to get account: %w", err)
	}
	if acc.IsVerified {
		return false, ErrEmailAlreadyVerified
	}

	token, digest, expires, err := s.verification.Generate()
	if err != nil {
		return false, err
	}

	if err := s.accounts.SetVerificationToken(ctx, acc.ID, digest, expires); err != nil {
		// verified between the read and the write
		if errors.Is(err, account.ErrNotFound) {
			return false, ErrEmailAlreadyVerified
		}
		return false, fmt.Errorf("failed to store verification token: %w", err)
	}

	return s.deliver(ctx, email.TemplateVerification, acc, func(ctx context.Context) error {
		return s.emails.SendVerificationEmail(ctx, recipient(acc), token)
	}), nil
}

// Logout revokes the presented session token.
func (s *Service) Logout(ctx context.Context, claims *TokenClaims) error {
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// DeleteAccount removes the account and its profile after re-checking the
// password, and revokes all of its sessions.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID, plaintext string) error {
	if plaintext == "" {
		return ErrDeletePasswordRequired
	}

	acc, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(acc.PasswordHash, plaintext) {
		return ErrPasswordIncorrect
	}

	if err := s.accounts.Delete(ctx, acc.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.revokeAll(ctx, acc.ID, sessionCutoff(s.now()))

	// The account is gone at this point, so a leftover profile is only logged.
	if err := s.profiles.DeleteForAccount(ctx, acc); err != nil {
		logging.GetLoggerFromContext(ctx).Error("failed to delete profile of deleted account",
			"user_id", acc.ID,
			"error", err,
		)
	}
	return nil
}

// setPassword stores a new hash unless plaintext already matches the stored
// one, and reports whether anything changed.
func (s *Service) setPassword(ctx context.Context, acc *account.Account, plaintext string) (bool, error) {
	if s.hasher.Verify(acc.PasswordHash, plaintext) {
		return false, nil
	}

	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, acc.ID, hash); err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}

	acc.PasswordHash = hash
	return true, nil
}

func (s *Service) issueSession(acc *account.Account) (*Session, error) {
	return s.issueSessionAt(acc, s.now())
}

func (s *Service) issueSessionAt(acc *account.Account, issuedAt time.Time) (*Session, error) {
	token, claims, err := s.tokens.CreateToken(acc.ID, issuedAt, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}
	return &Session{Account: acc, Token: token, Claims: claims}, nil
}

// sessionCutoff is the first whole second after now. Token timestamps have
// second precision, so a watermark at the cutoff rejects every token minted
// up to now.
func sessionCutoff(now time.Time) time.Time {
	return now.Truncate(time.Second).Add(time.Second)
}

// revokeAll invalidates older sessions. The password change it follows has
// already been persisted, so a failure is logged rather than returned.
func (s *Service) revokeAll(ctx context.Context, userID uuid.UUID, at time.Time) {
	if err := s.sessions.RevokeAllForUser(ctx, userID, at); err != nil {
		logging.GetLoggerFromContext(ctx).Error("failed to revoke sessions",
			"user_id", userID,
			"error", err,
		)
	}
}

// deliver sends one mail. Delivery problems are logged and reported as false.
func (s *Service) deliver(ctx context.Context, kind string, acc *account.Account, send func(context.Context) error) bool {
	if err := send(ctx); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to send email",
			"template", kind,
			"user_id", acc.ID,
			"error", err,
		)
		return false
	}
	return true
}

func recipient(acc *account.Account) email.Recipient {
	return email.Recipient{Name: acc.Name, Email: acc.Email}
}
