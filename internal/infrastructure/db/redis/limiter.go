package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

// SigninLimiter counts failed signins per username in a fixed window.
// Key format: signin:fail:<lowercased username>
type SigninLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewSigninLimiter creates a limiter. Non-positive values fall back to
// defaultMaxAttempts and defaultWindow.
func NewSigninLimiter(client *redis.Client, maxAttempts int, window time.Duration) *SigninLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &SigninLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow reports whether username may attempt another signin.
func (l *SigninLimiter) Allow(ctx context.Context, username string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(username)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("signin limiter get: %w", err)
	}
	return n < l.maxAttempts, nil
}

// RecordFailure increments the failure counter, starting the window on the
// first failure.
func (l *SigninLimiter) RecordFailure(ctx context.Context, username string) error {
	key := l.key(username)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("signin limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("signin limiter expire: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter.
func (l *SigninLimiter) Reset(ctx context.Context, username string) error {
	return l.client.Del(ctx, l.key(username)).Err()
}

func (l *SigninLimiter) key(username string) string {
	return "signin:fail:" + strings.ToLower(username)
}
