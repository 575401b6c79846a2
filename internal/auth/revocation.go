package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps revoked token ids and per-user "valid after"
// watermarks in Redis. Keys expire with the longest token they can affect.
type RedisSessionStore struct {
	client      *redis.Client
	maxLifetime time.Duration
}

func NewRedisSessionStore(client *redis.Client, maxLifetime time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, maxLifetime: maxLifetime}
}

// getRevokedKey generates the Redis key for a revoked token marker
func getRevokedKey(tokenID string) string {
	return fmt.Sprintf("session:revoked:%s", tokenID)
}

// getValidAfterKey generates the Redis key for a user's session watermark
func getValidAfterKey(userID uuid.UUID) string {
	return fmt.Sprintf("session:valid_after:%s", userID.String())
}

// Revoke marks a single token as revoked until it would have expired anyway.
func (r *RedisSessionStore) Revoke(ctx context.Context, claims *TokenClaims) error {
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, getRevokedKey(claims.TokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// RevokeAllForUser rejects every token of the user issued before at.
func (r *RedisSessionStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) error {
	err := r.client.Set(ctx, getValidAfterKey(userID), strconv.FormatInt(at.Unix(), 10), r.maxLifetime).Err()
	if err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}

	return nil
}

// IsRevoked checks the token denylist and the user's watermark in one round trip.
func (r *RedisSessionStore) IsRevoked(ctx context.Context, claims *TokenClaims) (bool, error) {
	pipe := r.client.Pipeline()
	revoked := pipe.Exists(ctx, getRevokedKey(claims.TokenID))
	validAfter := pipe.Get(ctx, getValidAfterKey(claims.UserID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}

	if revoked.Val() > 0 {
		return true, nil
	}

	watermark, err := validAfter.Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session watermark: %w", err)
	}

	// Token timestamps have second precision. Callers pass a watermark on a
	// whole second past the tokens they revoke.
	return claims.IssuedAt.Unix() < watermark, nil
}
