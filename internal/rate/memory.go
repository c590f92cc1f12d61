package rate

import (
	"context"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

type bucket struct {
	limiter    *xrate.Limiter
	lastAccess time.Time
}

// MemoryLimiter is an in-process LoginLimiter. Each username and IP gets a
// token bucket holding MaxAttempts tokens that refills completely over
// Cooldown. A failed attempt takes one token.
type MemoryLimiter struct {
	config Config
	limit  xrate.Limit
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter starts a limiter whose idle buckets are evicted every
// cleanupInterval. A non-positive interval disables eviction.
func NewMemoryLimiter(cfg Config, cleanupInterval time.Duration) *MemoryLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}

	l := &MemoryLimiter{
		config:  cfg,
		limit:   xrate.Limit(float64(cfg.MaxAttempts) / cfg.Cooldown.Seconds()),
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop(cleanupInterval)
	}
	return l
}

// CheckLogin reports ErrRateLimited when either bucket has less than one token.
func (l *MemoryLimiter) CheckLogin(_ context.Context, username, ip string) error {
	now := l.now()
	for _, key := range l.keys(username, ip) {
		if l.get(key, now).TokensAt(now) < 1 {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin takes one token from each bucket and reports ErrRateLimited
// when a bucket is now empty.
func (l *MemoryLimiter) IncrementLogin(_ context.Context, username, ip string) error {
	now := l.now()
	limited := false
	for _, key := range l.keys(username, ip) {
		lim := l.get(key, now)
		lim.AllowN(now, 1)
		if lim.TokensAt(now) < 1 {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin forgets the buckets for username and ip.
func (l *MemoryLimiter) ResetLogin(_ context.Context, username, ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range l.keys(username, ip) {
		delete(l.buckets, key)
	}
	return nil
}

// Len returns the number of tracked buckets.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the eviction goroutine.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *MemoryLimiter) keys(username, ip string) []string {
	keys := []string{loginUserKey(username)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	return keys
}

func (l *MemoryLimiter) get(key string, now time.Time) *xrate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: xrate.NewLimiter(l.limit, l.config.MaxAttempts)}
		l.buckets[key] = b
	}
	b.lastAccess = now
	return b.limiter
}

func (l *MemoryLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(l.now())
		case <-l.stopCh:
			return
		}
	}
}

// evictIdle drops buckets untouched for a full cooldown. Such a bucket has
// refilled, so forgetting it changes nothing.
func (l *MemoryLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.Sub(b.lastAccess) >= l.config.Cooldown {
			delete(l.buckets, key)
		}
	}
}
