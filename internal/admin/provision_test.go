package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/password"
	"github.com/redmonkez12/viziopath-api/internal/profile"
)

func newProvisioner(t *testing.T) (*Provisioner, *account.MemoryRepository, *profile.MemoryRepository) {
	t.Helper()

	hasher, err := password.NewHasher(password.AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	accounts := account.NewMemoryRepository()
	profiles := profile.NewMemoryRepository(accounts)
	return NewProvisioner(accounts, profiles, hasher), accounts, profiles
}

func TestNewUser_Validate(t *testing.T) {
	tests := []struct {
		name string
		user NewUser
		err  error
	}{
		{"missing name", NewUser{Name: " ", Email: "a@example.com", Password: "secret1"}, ErrNameRequired},
		{"bad email", NewUser{Name: "A", Email: "nope", Password: "secret1"}, ErrInvalidEmail},
		{"short password", NewUser{Name: "A", Email: "a@example.com", Password: "123"}, ErrPasswordTooWeak},
		{"unknown role", NewUser{Name: "A", Email: "a@example.com", Password: "secret1", Role: "root"}, ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.user.Validate(), tt.err)
		})
	}

	u := NewUser{Name: " Ann ", Email: " Ann@Example.COM ", Password: "secret1"}
	require.NoError(t, u.Validate())
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, account.RoleUser, u.Role)
}

func TestProvisioner_CreateUser(t *testing.T) {
	p, accounts, _ := newProvisioner(t)
	ctx := context.Background()

	acc, err := p.CreateUser(ctx, NewUser{Name: "Mod", Email: "mod@example.com", Password: "secret1", Role: account.RoleModerator})
	require.NoError(t, err)
	assert.True(t, acc.IsVerified)
	assert.Equal(t, account.RoleModerator, acc.Role)
	assert.Nil(t, acc.VerificationTokenHash)

	stored, err := accounts.GetByEmail(ctx, "mod@example.com")
	require.NoError(t, err)
	assert.True(t, p.hasher.Verify(stored.PasswordHash, "secret1"))

	_, err = p.CreateUser(ctx, NewUser{Name: "Again", Email: "MOD@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, account.ErrDuplicateEmail)
}

func TestProvisioner_SeedIsIdempotent(t *testing.T) {
	p, accounts, profiles := newProvisioner(t)
	ctx := context.Background()

	report, err := p.Seed(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Created, 4)
	assert.Empty(t, report.Skipped)

	admin, err := accounts.GetByEmail(ctx, "admin@viziopath.info")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, admin.Role)
	_, err = profiles.GetByUser(ctx, admin.ID)
	assert.ErrorIs(t, err, profile.ErrNotFound)

	john, err := accounts.GetByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	johnProfile, err := profiles.GetByUser(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tech Corp", johnProfile.Company)
	assert.Contains(t, johnProfile.Skills, "React")
	require.Len(t, johnProfile.Experience, 1)
	assert.True(t, johnProfile.Experience[0].Current)

	report, err = p.Seed(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Len(t, report.Skipped, 4)
}
