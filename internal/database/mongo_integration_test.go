//go:build integration

package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/config"
	"github.com/redmonkez12/viziopath-api/internal/profile"
)

// Run with: TEST_MONGO_URI="mongodb://localhost:27017" go test -tags integration ./internal/database/
func openTestMongo(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := ConnectMongo(ctx, config.MongoConfig{
		URI:                    uri,
		MaxPoolSize:            5,
		ServerSelectionTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	db := client.Database("viziopath_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	require.NoError(t, EnsureMongoIndexes(ctx, db))
	return db
}

func TestMongo_DuplicateEmail(t *testing.T) {
	db := openTestMongo(t)
	ctx := context.Background()
	repo := account.NewMongoRepository(db.Collection(AccountsCollection))
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.Create(ctx, newAccount("Alice", "alice@example.com", now)))
	assert.ErrorIs(t, repo.Create(ctx, newAccount("Other", "alice@example.com", now)), account.ErrDuplicateEmail)
}

func TestMongo_Lockout(t *testing.T) {
	db := openTestMongo(t)
	ctx := context.Background()
	repo := account.NewMongoRepository(db.Collection(AccountsCollection))
	now := time.Now().UTC().Truncate(time.Millisecond)
	policy := account.DefaultLockoutPolicy()

	acc := newAccount("Alice", "alice@example.com", now)
	require.NoError(t, repo.Create(ctx, acc))

	for i := 1; i < policy.MaxAttempts; i++ {
		state, err := repo.RecordLoginFailure(ctx, acc.ID, policy, now)
		require.NoError(t, err)
		assert.Equal(t, i, state.Attempts)
		assert.False(t, state.Locked(now), "attempt %d", i)
	}

	state, err := repo.RecordLoginFailure(ctx, acc.ID, policy, now)
	require.NoError(t, err)
	assert.Equal(t, policy.MaxAttempts, state.Attempts)
	require.True(t, state.Locked(now), "the fifth failure locks")
	assert.True(t, now.Add(policy.LockDuration).Equal(*state.LockUntil))

	// failures while locked count but do not extend the lock
	later := now.Add(time.Minute)
	state, err = repo.RecordLoginFailure(ctx, acc.ID, policy, later)
	require.NoError(t, err)
	assert.Equal(t, policy.MaxAttempts+1, state.Attempts)
	assert.True(t, now.Add(policy.LockDuration).Equal(*state.LockUntil))

	expired := now.Add(policy.LockDuration + time.Second)
	state, err = repo.RecordLoginFailure(ctx, acc.ID, policy, expired)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Attempts, "an expired lock restarts the count")
	assert.Nil(t, state.LockUntil)

	stored, err := repo.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.LoginAttempts)
	assert.Nil(t, stored.LockUntil)

	require.NoError(t, repo.RecordLoginSuccess(ctx, acc.ID, expired))
	stored, err = repo.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, expired.Equal(*stored.LastLogin))

	_, err = repo.RecordLoginFailure(ctx, uuid.New(), policy, now)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestMongo_SecretTokensAreSingleUse(t *testing.T) {
	db := openTestMongo(t)
	ctx := context.Background()
	repo := account.NewMongoRepository(db.Collection(AccountsCollection))
	now := time.Now().UTC().Truncate(time.Millisecond)

	acc := newAccount("Alice", "alice@example.com", now)
	require.NoError(t, repo.Create(ctx, acc))

	require.NoError(t, repo.SetVerificationToken(ctx, acc.ID, "verify-digest", now.Add(24*time.Hour)))
	_, err := repo.ConsumeVerificationToken(ctx, "verify-digest", now.Add(25*time.Hour))
	assert.ErrorIs(t, err, account.ErrNotFound, "expired tokens are not consumed")

	verified, err := repo.ConsumeVerificationToken(ctx, "verify-digest", now)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.VerificationTokenHash)
	_, err = repo.ConsumeVerificationToken(ctx, "verify-digest", now)
	assert.ErrorIs(t, err, account.ErrNotFound)

	assert.ErrorIs(t, repo.SetVerificationToken(ctx, acc.ID, "again", now.Add(time.Hour)), account.ErrNotFound,
		"verified accounts take no new verification token")

	policy := account.LockoutPolicy{MaxAttempts: 1, LockDuration: time.Hour}
	_, err = repo.RecordLoginFailure(ctx, acc.ID, policy, now)
	require.NoError(t, err)

	require.NoError(t, repo.SetResetToken(ctx, acc.ID, "reset-digest", now.Add(time.Hour)))
	_, err = repo.ConsumeResetToken(ctx, "reset-digest", "new-hash", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, account.ErrNotFound)

	reset, err := repo.ConsumeResetToken(ctx, "reset-digest", "new-hash", now)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reset.PasswordHash)
	assert.Nil(t, reset.ResetTokenHash)
	assert.Zero(t, reset.LoginAttempts)
	assert.Nil(t, reset.LockUntil, "a reset also lifts the lock")

	_, err = repo.ConsumeResetToken(ctx, "reset-digest", "other", now)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestMongo_Profiles(t *testing.T) {
	db := openTestMongo(t)
	ctx := context.Background()
	accounts := account.NewMongoRepository(db.Collection(AccountsCollection))
	profiles := profile.NewMongoRepository(db.Collection(ProfilesCollection), AccountsCollection)
	now := time.Now().UTC().Truncate(time.Millisecond)

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

	skills := []string{"Go", "MongoDB"}
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
	require.NotNil(t, found[0].Owner)
	assert.Equal(t, "Alice Gopher", found[0].Owner.Name)

	found, _, err = profiles.Search(ctx, profile.SearchQuery{Text: "gopher", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, _, err = profiles.Search(ctx, profile.SearchQuery{Text: "a.*", Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, found, "search text is not a regular expression")

	suggested, err := profiles.Suggest(ctx, profile.SuggestionQuery{Exclude: bob.ID, Skills: []string{"Go"}, Limit: 5})
	require.NoError(t, err)
	require.Len(t, suggested, 1)
	assert.Equal(t, alice.ID, suggested[0].UserID)

	require.NoError(t, profiles.IncrementViews(ctx, alice.ID))
	p, err := profiles.GetByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats.ProfileViews)

	require.NoError(t, profiles.DeleteByUser(ctx, alice.ID))
	_, err = profiles.GetByUser(ctx, alice.ID)
	assert.ErrorIs(t, err, profile.ErrNotFound)
	assert.NoError(t, profiles.DeleteByUser(ctx, alice.ID), "deleting a missing profile is not an error")
}
