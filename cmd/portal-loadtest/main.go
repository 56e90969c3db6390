// Command portal-loadtest measures session resolution and route guarding
// throughput against Redis (or an embedded miniredis).
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

	goPortal "github.com/MrEthical07/goPortal"
)

var navigationPaths = []string{
	"/", "/productos", "/productos/42", "/carrito", "/pedidos/7",
	"/admin/usuarios", "/admin/usuarios/3", "/coordinador/pedidos",
	"/coordinador/leads/9", "/login", "/no-such-screen",
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (resolve + navigate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "ps", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
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

	cfg := goPortal.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("portal-loadtest-signing-key-0123456789")
	cfg.Session.RedisPrefix = *prefix
	cfg.RateLimit.EnableIPThrottle = false
	cfg.Metrics.EnableLatencyHistograms = true

	portal, err := goPortal.New().
		WithConfig(cfg).
		WithRedis(client).
		WithBackend(loadBackend{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build portal: %v\n", err)
		os.Exit(1)
	}
	defer portal.Close()

	tokens := make([]string, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range tokens {
		res, err := portal.Login(ctx, fmt.Sprintf("user-%d@load.local", i), "x")
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = res.Token
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		sess := portal.SessionFromToken(ctx, tokens[r.Intn(len(tokens))])
		if !sess.Authenticated {
			return errNoSession
		}
		return nil
	})
	navigateStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		sess := portal.SessionFromToken(ctx, tokens[r.Intn(len(tokens))])
		if !sess.Authenticated {
			return errNoSession
		}
		portal.Navigate(ctx, sess, navigationPaths[r.Intn(len(navigationPaths))])
		return nil
	})

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("navigate", navigateStats)

	snap := portal.MetricsSnapshot()
	fmt.Printf("guard: render=%d login=%d home=%d not_found=%d\n",
		snap.Counters[goPortal.MetricGuardRender],
		snap.Counters[goPortal.MetricGuardRedirectLogin],
		snap.Counters[goPortal.MetricGuardRedirectHome],
		snap.Counters[goPortal.MetricGuardNotFound],
	)
}

func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
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
