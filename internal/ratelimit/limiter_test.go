package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/viziopath-api/internal/config"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLimiter(client, cfg), mr
}

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:       true,
		IPLimit:       3,
		IPWindow:      15 * time.Minute,
		EmailCooldown: 2 * time.Minute,
	}
}

func TestIPRateLimit(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, testConfig())

	for i := 0; i < 3; i++ {
		exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
		require.NoError(t, err)
		assert.False(t, exceeded, "request %d", i+1)
		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))
	}

	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.True(t, exceeded)

	// other purposes and other addresses have their own windows
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "register")
	require.NoError(t, err)
	assert.False(t, exceeded)
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.2", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)

	mr.FastForward(16 * time.Minute)
	exceeded, err = l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestIPRateLimit_WindowIsNotExtended(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, testConfig())
	key := ipKey("10.0.0.1", "login")

	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))
	assert.Equal(t, 15*time.Minute, mr.TTL(key))

	mr.FastForward(10 * time.Minute)
	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))
	assert.Equal(t, 5*time.Minute, mr.TTL(key))
}

func TestIPRateLimit_CounterWithoutExpiryGetsOne(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, testConfig())
	key := ipKey("10.0.0.1", "login")

	require.NoError(t, mr.Set(key, "7"))
	require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))

	count, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "8", count)
	assert.Equal(t, 15*time.Minute, mr.TTL(key))

	mr.FastForward(16 * time.Minute)
	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestEmailCooldown(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, testConfig())

	on, err := l.CheckEmailCooldown(ctx, "alice@example.com", "forgot-password")
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, l.SetEmailCooldown(ctx, "Alice@Example.com ", "forgot-password"))

	on, err = l.CheckEmailCooldown(ctx, "alice@example.com", "forgot-password")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = l.CheckEmailCooldown(ctx, "alice@example.com", "resend-verification")
	require.NoError(t, err)
	assert.False(t, on)

	mr.FastForward(3 * time.Minute)
	on, err = l.CheckEmailCooldown(ctx, "alice@example.com", "forgot-password")
	require.NoError(t, err)
	assert.False(t, on)
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Enabled = false
	l, mr := newTestLimiter(t, cfg)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "10.0.0.1", "login"))
	}
	exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "10.0.0.1", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
	assert.Empty(t, mr.Keys())
}
