package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter implements a fixed window per key: the first hit in a window
// creates the counter with a TTL, later hits increment it. Counts above the
// limit are rejected until the key expires.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// UserCommandKey scopes the window to one user and one command, so a chat
// flood cannot starve unrelated commands.
func UserCommandKey(userID int64, command string) string {
	return fmt.Sprintf("rate_limit:%d:%s", userID, command)
}
