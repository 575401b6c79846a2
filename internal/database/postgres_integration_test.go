//go:build integration

package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/profile"
)

// Run with: TEST_DATABASE_DSN="postgres://..." go test -tags integration ./internal/database/
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, sqlDB))

	_, err = sqlDB.ExecContext(ctx, "TRUNCATE profiles, accounts")
	require.NoError(t, err)
	return sqlDB
}

func newAccount(name, addr string, now time.Time) *account.Account {
	return &account.Account{
		ID:           uuid.New(),
		Name:         name,
		Email:        addr,
		PasswordHash: "hash",
		Role:         account.RoleUser,
		Preferences:  account.DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostgres_AccountLifecycle(t *testing.T) {
	db := NewBunDB(openTestDB(t))
	ctx := context.Background()
	repo := account.NewPostgresRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	acc := newAccount("Alice", "alice@example.com", now)
	require.NoError(t, repo.Create(ctx, acc))
	assert.ErrorIs(t, repo.Create(ctx, newAccount("Other", "alice@example.com", now)), account.ErrDuplicateEmail)

	policy := account.LockoutPolicy{MaxAttempts: 2, LockDuration: time.Hour}
	state, err := repo.RecordLoginFailure(ctx, acc.ID, policy, now)
	require.NoError(t, err)
	assert.False(t, state.Locked(now))
	state, err = repo.RecordLoginFailure(ctx, acc.ID, policy, now)
	require.NoError(t, err)
	assert.True(t, state.Locked(now))

	require.NoError(t, repo.RecordLoginSuccess(ctx, acc.ID, now))
	stored, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	assert.Nil(t, stored.LockUntil)

	require.NoError(t, repo.SetResetToken(ctx, acc.ID, "digest", now.Add(time.Hour)))
	_, err = repo.ConsumeResetToken(ctx, "digest", "new-hash", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, account.ErrNotFound, "expired tokens are not consumed")
	consumed, err := repo.ConsumeResetToken(ctx, "digest", "new-hash", now)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", consumed.PasswordHash)
	_, err = repo.ConsumeResetToken(ctx, "digest", "other", now)
	assert.ErrorIs(t, err, account.ErrNotFound, "tokens are single use")
}

func TestPostgres_ProfileSearch(t *testing.T) {
	db := NewBunDB(openTestDB(t))
	ctx := context.Background()
	accounts := account.NewPostgresRepository(db)
	profiles := profile.NewPostgresRepository(db)
	now := time.Now().UTC().Truncate(time.Second)

	alice := newAccount("Alice Gopher", "alice@example.com", now)
	bob := newAccount("Bob", "bob@example.com", now)
	require.NoError(t, accounts.Create(ctx, alice))
	require.NoError(t, accounts.Create(ctx, bob))

	for _, id := range []uuid.UUID{alice.ID, bob.ID} {
		_, created, err := profiles.Ensure(ctx, profile.New(id, now))
		require.NoError(t, err)
		assert.True(t, created)
	}
	_, created, err := profiles.Ensure(ctx, profile.New(alice.ID, now))
	require.NoError(t, err)
	assert.False(t, created)

	skills := []string{"Go", "Postgres"}
	_, err = profiles.Update(ctx, alice.ID, profile.Update{Skills: &skills, Location: ptrTo("Prague")}, now)
	require.NoError(t, err)

	private := profile.DefaultPreferences()
	private.Privacy.ProfileVisibility = profile.VisibilityPrivate
	_, err = profiles.Update(ctx, bob.ID, profile.Update{Preferences: &private, Skills: &skills}, now)
	require.NoError(t, err)

	found, total, err := profiles.Search(ctx, profile.SearchQuery{Skills: []string{"Go"}, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, "Alice Gopher", found[0].Owner.Name)

	found, _, err = profiles.Search(ctx, profile.SearchQuery{Text: "gopher", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, _, err = profiles.Search(ctx, profile.SearchQuery{Text: "100%_", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, found, "wildcards are matched literally")

	require.NoError(t, profiles.IncrementViews(ctx, alice.ID))
	p, err := profiles.GetByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats.ProfileViews)

	require.NoError(t, accounts.Delete(ctx, alice.ID))
	_, err = profiles.GetByUser(ctx, alice.ID)
	assert.ErrorIs(t, err, profile.ErrNotFound, "profiles cascade with their account")
}

func ptrTo(s string) *string {
	return &s
}
