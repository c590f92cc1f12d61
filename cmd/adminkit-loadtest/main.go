// Command adminkit-loadtest measures token verification and Redis-backed login
// throttling under concurrency.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	adminkit "github.com/Adrijan-Petek/miniapp-admin-kit"
	"github.com/Adrijan-Petek/miniapp-admin-kit/credential"
	"github.com/Adrijan-Petek/miniapp-admin-kit/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const loadtestSecret = "adminkit-loadtest-secret-0123456789"

func main() {
	var (
		tokens      = pflag.Int("tokens", 10000, "number of session tokens to issue")
		concurrency = pflag.Int("concurrency", 64, "number of concurrent workers")
		ops         = pflag.Int("ops", 200000, "operations per phase")
		users       = pflag.Int("users", 500, "distinct usernames in the throttle phase")
		redisAddr   = pflag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	pflag.Parse()

	if *tokens <= 0 || *concurrency <= 0 || *ops <= 0 || *users <= 0 {
		fmt.Fprintln(os.Stderr, "tokens, concurrency, ops and users must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := adminkit.DefaultConfig()
	cfg.Session.Secret = []byte(loadtestSecret)
	cfg.Login.MaxAttempts = 5
	cfg.Login.Cooldown = time.Minute
	cfg.Login.EnableIPThrottle = false
	cfg.Audit.Enabled = false

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	engine, err := adminkit.New().
		WithConfig(cfg).
		WithCredentialChecker(credential.NewStaticChecker("loadtest", "Loadtest-Passw0rd")).
		WithRedis(client).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	issued, err := issueTokens(engine.Authority(), *tokens)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
		os.Exit(1)
	}

	verifyStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		if _, ok := engine.Validate(context.Background(), issued[r.Intn(len(issued))]); !ok {
			return errors.New("token rejected")
		}
		return nil
	})

	// Every username receives far more failures than the budget allows, so
	// most attempts must come back rate limited without touching the checker.
	var limited atomic.Int64
	throttleStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		name := fmt.Sprintf("user-%d", r.Intn(*users))
		_, err := engine.Login(context.Background(), name, "wrong-password")
		switch {
		case errors.Is(err, adminkit.ErrLoginRateLimited):
			limited.Add(1)
			return nil
		case errors.Is(err, adminkit.ErrLoginFailed):
			return nil
		default:
			return err
		}
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("throttle", throttleStats)
	fmt.Printf("throttle: rate_limited=%d\n", limited.Load())
}

func issueTokens(a *adminkit.Authority, n int) ([]string, error) {
	roles := permission.Roles()
	out := make([]string, n)
	fmt.Printf("issuing %d tokens...\n", n)
	start := time.Now()
	for i := range out {
		tok, _, err := a.Issue(adminkit.Identity{
			UserID:   fmt.Sprintf("%d", i+1),
			Username: fmt.Sprintf("admin-%d", i),
			Role:     roles[i%len(roles)],
		})
		if err != nil {
			return nil, err
		}
		out[i] = tok
	}
	fmt.Printf("issued in %s\n", time.Since(start).Round(time.Millisecond))
	return out, nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
