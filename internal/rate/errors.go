package rate

import "errors"

var (
	// ErrRateLimited is returned once a key has used its failed-login budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps any Redis transport or protocol failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
