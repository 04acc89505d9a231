//go:build integration
// +build integration

package test

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the compatibility suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the Redis backends to test. miniredis is always
// available; a real standalone server is added when REDIS_ADDR is set and a
// cluster when REDIS_CLUSTER_ADDRS is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	return modes
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

func newManager(t *testing.T, rdb redis.UniversalClient, dir goSession.Directory) *goSession.Manager {
	t.Helper()

	cfg := goSession.DefaultConfig()
	cfg.Token.Secret = []byte("integration-secret-integration-secret")
	cfg.Account.Password = password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	if dir == nil {
		dir = directory.NewMemory()
	}

	mgr, err := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDirectory(dir).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build manager: %v", err)
	}
	t.Cleanup(mgr.Close)
	return mgr
}

// login consumes a fresh code for username and returns the decision and the
// token the response would carry.
func login(t *testing.T, mgr *goSession.Manager, username string) (goSession.Decision, string) {
	t.Helper()
	ctx := context.Background()

	code, err := mgr.IssueCode(ctx, goSession.Claims{"username": username}, 0)
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	d, err := mgr.Open(ctx, code)
	if err != nil {
		t.Fatalf("open code: %v", err)
	}
	if d.Reason != goSession.ReasonLoggedIn {
		t.Fatalf("expected logged_in, got %s", d.Reason)
	}

	header := http.Header{}
	if err := mgr.Save(ctx, d.Session, header); err != nil {
		t.Fatalf("save: %v", err)
	}
	return d, header.Get(mgr.HeaderName())
}
