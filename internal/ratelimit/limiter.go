// Package ratelimit throttles abuse-prone public endpoints with Redis
// fixed-window counters and per-email cooldown markers.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/viziopath-api/internal/config"
)

// Limiter counts requests per client IP and purpose. A disabled Limiter
// allows everything without touching Redis.
type Limiter struct {
	client        *redis.Client
	enabled       bool
	ipLimit       int
	ipWindow      time.Duration
	emailCooldown time.Duration
}

func NewLimiter(client *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client:        client,
		enabled:       cfg.Enabled,
		ipLimit:       cfg.IPLimit,
		ipWindow:      cfg.IPWindow,
		emailCooldown: cfg.EmailCooldown,
	}
}

func ipKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func emailKey(email, purpose string) string {
	return fmt.Sprintf("ratelimit:email:%s:%s", purpose, strings.ToLower(strings.TrimSpace(email)))
}

// recordScript increments a counter and starts its window when it has no
// expiry yet, so a counter can never outlive its window.
var recordScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// CheckIPRateLimitWithPurpose reports whether ip has used up its window for purpose.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	if !l.enabled {
		return false, nil
	}

	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= l.ipLimit, nil
}

// RecordIPRequestWithPurpose counts one request. The window starts with the
// first request and is not extended by later ones.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	if !l.enabled {
		return nil
	}

	err := recordScript.Run(ctx, l.client, []string{ipKey(ip, purpose)}, l.ipWindow.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}

// CheckEmailCooldown reports whether a mail for purpose was sent to email recently.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, email, purpose string) (bool, error) {
	if !l.enabled {
		return false, nil
	}

	n, err := l.client.Exists(ctx, emailKey(email, purpose)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}

	return n > 0, nil
}

// SetEmailCooldown starts the cooldown window for email.
func (l *Limiter) SetEmailCooldown(ctx context.Context, email, purpose string) error {
	if !l.enabled {
		return nil
	}

	if err := l.client.Set(ctx, emailKey(email, purpose), "1", l.emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}

	return nil
}
