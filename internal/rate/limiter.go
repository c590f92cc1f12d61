package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds failed-login budget parameters.
type Config struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// LoginLimiter is the contract the engine uses for login throttling.
type LoginLimiter interface {
	CheckLogin(ctx context.Context, username, ip string) error
	IncrementLogin(ctx context.Context, username, ip string) error
	ResetLogin(ctx context.Context, username, ip string) error
}

// RedisLimiter enforces per-username and per-IP failed-login budgets using
// Redis counters.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
}

// NewRedisLimiter creates a [RedisLimiter] backed by redisClient.
func NewRedisLimiter(redisClient redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited when either the username or the IP has
// already reached its budget for the current window.
func (l *RedisLimiter) CheckLogin(ctx context.Context, username, ip string) error {
	if err := l.checkCounter(ctx, loginUserKey(username)); err != nil {
		return err
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip)); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records one failed attempt. It returns ErrRateLimited when the
// attempt used up the last unit of budget.
func (l *RedisLimiter) IncrementLogin(ctx context.Context, username, ip string) error {
	limited := false

	count, err := l.incrementWithTTL(ctx, loginUserKey(username))
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		limited = true
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, loginIPKey(ip))
		if err != nil {
			return err
		}
		if count >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}

	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the username counter and, when IP throttling is on, the IP
// counter.
func (l *RedisLimiter) ResetLogin(ctx context.Context, username, ip string) error {
	keys := []string{loginUserKey(username)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failed-attempt count recorded for username in the
// current window. Unknown usernames report zero.
func (l *RedisLimiter) Attempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, loginUserKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *RedisLimiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *RedisLimiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set by the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func loginUserKey(username string) string {
	return "adl:" + username
}

func loginIPKey(ip string) string {
	return "adli:" + ip
}
