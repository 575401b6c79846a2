// Package admin provisions accounts outside the public signup flow.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/auth"
	"github.com/redmonkez12/viziopath-api/internal/password"
	"github.com/redmonkez12/viziopath-api/internal/profile"
)

var (
	ErrNameRequired    = errors.New("name is required")
	ErrInvalidEmail    = errors.New("a valid email is required")
	ErrPasswordTooWeak = errors.New("password must be at least 6 characters")
	ErrInvalidRole     = errors.New("role must be one of user, admin, moderator")
)

// NewUser describes an account created by an operator. Such accounts skip
// email verification.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     account.Role
}

// Validate normalizes u in place.
func (u *NewUser) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = auth.NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = account.RoleUser
	}

	switch {
	case u.Name == "":
		return ErrNameRequired
	case !strings.Contains(u.Email, "@"):
		return ErrInvalidEmail
	case len(u.Password) < 6:
		return ErrPasswordTooWeak
	case !u.Role.Valid():
		return ErrInvalidRole
	}
	return nil
}

// Provisioner creates verified accounts and their profiles.
type Provisioner struct {
	accounts account.Repository
	profiles profile.Repository
	hasher   *password.Hasher
	now      func() time.Time
}

func NewProvisioner(accounts account.Repository, profiles profile.Repository, hasher *password.Hasher) *Provisioner {
	return &Provisioner{
		accounts: accounts,
		profiles: profiles,
		hasher:   hasher,
		now:      time.Now,
	}
}

// CreateUser stores a verified account. An existing email yields
// account.ErrDuplicateEmail.
func (p *Provisioner) CreateUser(ctx context.Context, u NewUser) (*account.Account, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	hash, err := p.hasher.Hash(u.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := p.now()
	acc := &account.Account{
		ID:           uuid.New(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: hash,
		Role:         u.Role,
		IsVerified:   true,
		Preferences:  account.DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// SeedReport lists the sample emails that were inserted and those that
// already existed.
type SeedReport struct {
	Created []string
	Skipped []string
}

// Seed inserts the sample accounts and their profiles. Accounts whose email
// is already taken are left alone, so running it twice is harmless.
func (p *Provisioner) Seed(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}

	for _, sample := range sampleData() {
		_, err := p.accounts.GetByEmail(ctx, sample.user.Email)
		switch {
		case err == nil:
			report.Skipped = append(report.Skipped, sample.user.Email)
			continue
		case !errors.Is(err, account.ErrNotFound):
			return report, fmt.Errorf("failed to look up %s: %w", sample.user.Email, err)
		}

		acc, err := p.CreateUser(ctx, sample.user)
		if err != nil {
			return report, fmt.Errorf("failed to seed %s: %w", sample.user.Email, err)
		}

		if sample.profile != nil {
			if err := p.seedProfile(ctx, acc.ID, *sample.profile); err != nil {
				return report, fmt.Errorf("failed to seed profile of %s: %w", acc.Email, err)
			}
		}

		report.Created = append(report.Created, acc.Email)
	}

	return report, nil
}

func (p *Provisioner) seedProfile(ctx context.Context, userID uuid.UUID, u profile.Update) error {
	now := p.now()
	if _, _, err := p.profiles.Ensure(ctx, profile.New(userID, now)); err != nil {
		return err
	}
	_, err := p.profiles.Update(ctx, userID, u, now)
	return err
}
