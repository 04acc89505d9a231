package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "open operations in the resume phase")
		codes       = flag.Int("codes", 200, "one-time codes in the replay phase")
		racers      = flag.Int("racers", 8, "concurrent consumers per one-time code")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "as", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *codes <= 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops, codes and racers must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

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
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goSession.DefaultConfig()
	cfg.Token.Secret = []byte("loadtest-secret-loadtest-secret-!")
	cfg.Session.RedisPrefix = *prefix
	cfg.Account.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	mgr, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(directory.NewMemory()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	tokens := make([]string, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		tok, err := seed(ctx, mgr, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = tok
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resumeStats := runResumePhase(ctx, mgr, tokens, *ops, *concurrency)
	replayStats, multiWinners := runReplayPhase(ctx, mgr, *codes, *racers)

	fmt.Println("---- results ----")
	printStats("resume", resumeStats)
	printStats("replay", replayStats)
	fmt.Printf("codes with more than one winner: %d\n", multiWinners)
	fmt.Printf("login events dropped: %d\n", mgr.DroppedLoginEvents())

	if multiWinners > 0 {
		os.Exit(1)
	}
}

// seed logs a user in through a one-time code and returns the session
// token. Users repeat every 100 sessions so only the first logins provision
// accounts.
func seed(ctx context.Context, mgr *goSession.Manager, i int) (string, error) {
	code, err := mgr.IssueCode(ctx, goSession.Claims{"username": fmt.Sprintf("seed-%d", i%100)}, 0)
	if err != nil {
		return "", err
	}
	d, err := mgr.Open(ctx, code)
	if err != nil {
		return "", err
	}
	if d.Reason != goSession.ReasonLoggedIn {
		return "", fmt.Errorf("seed login failed: %s", d.Reason)
	}

	header := http.Header{}
	if err := mgr.Save(ctx, d.Session, header); err != nil {
		return "", err
	}
	return header.Get(mgr.HeaderName()), nil
}

func runResumePhase(ctx context.Context, mgr *goSession.Manager, tokens []string, ops, concurrency int) phaseStats {
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
				tok := tokens[r.Intn(len(tokens))]
				t0 := time.Now()
				d, err := mgr.Open(ctx, tok)
				elapsed := time.Since(t0)
				if err != nil || d.Reason != goSession.ReasonResumed {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runReplayPhase races racers consumers on every code. A failure is a code
// that did not produce exactly one login.
func runReplayPhase(ctx context.Context, mgr *goSession.Manager, codes, racers int) (phaseStats, int) {
	var (
		failures     int64
		multiWinners int
		latencies    = make([]time.Duration, 0, codes*racers)
		mu           sync.Mutex
	)

	start := time.Now()
	for c := 0; c < codes; c++ {
		code, err := mgr.IssueCode(ctx, goSession.Claims{"username": fmt.Sprintf("racer-%d@example.com", c)}, 0)
		if err != nil {
			atomic.AddInt64(&failures, 1)
			continue
		}

		var (
			wg      sync.WaitGroup
			winners int64
		)
		for r := 0; r < racers; r++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				t0 := time.Now()
				d, err := mgr.Open(ctx, code)
				elapsed := time.Since(t0)
				if err == nil && d.Reason == goSession.ReasonLoggedIn {
					atomic.AddInt64(&winners, 1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()
			}()
		}
		wg.Wait()

		switch {
		case winners > 1:
			multiWinners++
			atomic.AddInt64(&failures, 1)
		case winners == 0:
			atomic.AddInt64(&failures, 1)
		}
	}
	total := time.Since(start)
	return computeStats(total, latencies, failures), multiWinners
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
		return phaseStats{total: total, failures: failures}
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
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
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
