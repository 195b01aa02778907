// Command clinicauth-loadtest measures session validation and trusted-device
// login throughput against Redis (or an in-process miniredis).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/clinicauth"
	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/device"
	"github.com/MrEthical07/clinicauth/internal/tokens"
	"github.com/MrEthical07/clinicauth/password"
	"github.com/MrEthical07/clinicauth/store/redisstore"
)

const (
	loadUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"
	loadIP        = "192.0.2.44"
	loadPassword  = "load-test-password"
)

type seeded struct {
	email string
	token string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 10000, "number of doctor accounts to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "session validations to run")
		logins      = flag.Int("logins", 2000, "trusted-device logins to run")
		scryptN     = flag.Int("scrypt-n", 16384, "scrypt cost for seeded passwords")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "account key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *logins < 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := clinicauth.DefaultConfig()
	cfg.Password.N = *scryptN
	cfg.Password.UpgradeOnLogin = false
	cfg.Limits.MaxLoginAttempts = 0
	cfg.Notify.Async = false

	store := redisstore.New(client, *prefix)
	engine, err := clinicauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountStore(store).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	hasher, err := password.NewScrypt(password.Config{
		N:          cfg.Password.N,
		R:          cfg.Password.R,
		P:          cfg.Password.P,
		SaltLength: cfg.Password.SaltLength,
		KeyLength:  cfg.Password.KeyLength,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scrypt init failed: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	states, err := seed(ctx, store, hash, *accounts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	clientCtx := clinicauth.WithUserAgent(clinicauth.WithClientIP(ctx, loadIP), loadUserAgent)

	validateStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		s := states[r.Intn(len(states))]
		_, err := engine.ValidateSession(ctx, clinicauth.RoleDoctor, s.token)
		return err
	})
	loginStats := runPhase(*logins, *concurrency, func(r *rand.Rand) error {
		s := states[r.Intn(len(states))]
		res, err := engine.LoginWithPassword(clientCtx, clinicauth.RoleDoctor, s.email, loadPassword)
		if err == nil && res.RequiresOTP {
			return fmt.Errorf("unexpected OTP challenge for %s", s.email)
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("login", loginStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: session_validated=%d login_success=%d\n",
		snap.Counters[clinicauth.MetricSessionValidated],
		snap.Counters[clinicauth.MetricLoginSuccess],
	)
}

// seed writes active doctors with a live session and a trusted load-test
// device directly to the store.
func seed(ctx context.Context, store *redisstore.Store, passwordHash string, n int) ([]seeded, error) {
	now := time.Now()
	deviceID := device.Fingerprint(loadUserAgent, loadIP)
	out := make([]seeded, 0, n)

	for i := 0; i < n; i++ {
		token, err := tokens.NewOpaque()
		if err != nil {
			return nil, err
		}
		acct := &account.Account{
			Role:             account.RoleDoctor,
			Email:            fmt.Sprintf("doctor-%d@load.example", i),
			Name:             fmt.Sprintf("Doctor %d", i),
			PasswordHash:     passwordHash,
			SessionToken:     tokens.Hash(token),
			SessionExpiresAt: now.Add(24 * time.Hour),
			Devices:          device.Remember(nil, deviceID, loadUserAgent, loadIP, now),
		}
		if _, err := store.Create(ctx, acct); err != nil {
			return nil, err
		}
		out = append(out, seeded{email: acct.Email, token: token})
	}
	return out, nil
}

func runPhase(ops, concurrency int, op func(r *rand.Rand) error) phaseStats {
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
				err := op(r)
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
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
