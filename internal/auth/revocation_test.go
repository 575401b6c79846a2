package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSessionStore(client, 7*24*time.Hour), mr
}

func testClaims(userID uuid.UUID, issued time.Time) *TokenClaims {
	return &TokenClaims{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(time.Hour),
	}
}

func TestRedisSessionStore_Revoke(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestSessionStore(t)

	claims := testClaims(uuid.New(), time.Now())
	revoked, err := store.IsRevoked(ctx, claims)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, claims))

	revoked, err = store.IsRevoked(ctx, claims)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl := mr.TTL("session:revoked:" + claims.TokenID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Hour)

	// another token of the same user is unaffected
	revoked, err = store.IsRevoked(ctx, testClaims(claims.UserID, time.Now()))
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisSessionStore_RevokeExpiredTokenIsNoop(t *testing.T) {
	store, mr := newTestSessionStore(t)

	claims := testClaims(uuid.New(), time.Now().Add(-2*time.Hour))
	require.NoError(t, store.Revoke(context.Background(), claims))
	assert.False(t, mr.Exists("session:revoked:"+claims.TokenID))
}

func TestRedisSessionStore_RevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestSessionStore(t)

	userID := uuid.New()
	watermark := time.Now().Truncate(time.Second)

	before := testClaims(userID, watermark.Add(-time.Second))
	sameSecond := testClaims(userID, watermark)
	after := testClaims(userID, watermark.Add(time.Second))
	otherUser := testClaims(uuid.New(), watermark.Add(-time.Second))

	require.NoError(t, store.RevokeAllForUser(ctx, userID, watermark))

	for name, tc := range map[string]struct {
		claims *TokenClaims
		want   bool
	}{
		"issued before": {before, true},
		"same second":   {sameSecond, false},
		"issued after":  {after, false},
		"other user":    {otherUser, false},
	} {
		t.Run(name, func(t *testing.T) {
			revoked, err := store.IsRevoked(ctx, tc.claims)
			require.NoError(t, err)
			assert.Equal(t, tc.want, revoked)
		})
	}
}

func TestRedisSessionStore_RedisDown(t *testing.T) {
	store, mr := newTestSessionStore(t)
	mr.Close()

	_, err := store.IsRevoked(context.Background(), testClaims(uuid.New(), time.Now()))
	assert.Error(t, err)
}
