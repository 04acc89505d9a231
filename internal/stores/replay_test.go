package stores

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestReplayGuardFirstUseThenReplay(t *testing.T) {
	_, rdb := newRedisTest(t)
	g := NewReplayGuard(rdb, "")
	ctx := context.Background()

	used, err := g.CheckAndMark(ctx, "X1", time.Minute)
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if used {
		t.Fatal("first use must not be reported as used")
	}

	for i := 0; i < 3; i++ {
		used, err = g.CheckAndMark(ctx, "X1", time.Minute)
		if err != nil {
			t.Fatalf("replay mark: %v", err)
		}
		if !used {
			t.Fatal("replayed code must be reported as used")
		}
	}

	used, err = g.CheckAndMark(ctx, "X2", time.Minute)
	if err != nil || used {
		t.Fatalf("distinct code must be independent, used=%v err=%v", used, err)
	}
}

func TestReplayGuardStoresDigestOnly(t *testing.T) {
	mr, rdb := newRedisTest(t)
	g := NewReplayGuard(rdb, "aru")

	if _, err := g.CheckAndMark(context.Background(), "secret-code-value", time.Minute); err != nil {
		t.Fatalf("mark: %v", err)
	}
	for _, k := range mr.Keys() {
		if strings.Contains(k, "secret-code-value") {
			t.Fatalf("raw code leaked into key %q", k)
		}
		if !strings.HasPrefix(k, "aru:") {
			t.Fatalf("unexpected key %q", k)
		}
	}
}

func TestReplayGuardExpiresWithTTL(t *testing.T) {
	mr, rdb := newRedisTest(t)
	g := NewReplayGuard(rdb, "aru")
	ctx := context.Background()

	if _, err := g.CheckAndMark(ctx, "X1", time.Minute); err != nil {
		t.Fatalf("mark: %v", err)
	}
	used, err := g.Used(ctx, "X1")
	if err != nil || !used {
		t.Fatalf("expected code to be marked, used=%v err=%v", used, err)
	}

	mr.FastForward(2 * time.Minute)

	used, err = g.Used(ctx, "X1")
	if err != nil || used {
		t.Fatalf("expected marker to expire, used=%v err=%v", used, err)
	}
}

func TestReplayGuardConcurrentSingleWinner(t *testing.T) {
	_, rdb := newRedisTest(t)
	g := NewReplayGuard(rdb, "aru")
	ctx := context.Background()

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	var winners atomic.Int32
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			used, err := g.CheckAndMark(ctx, "X1", time.Minute)
			if err != nil {
				t.Errorf("mark: %v", err)
				return
			}
			if !used {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("expected exactly one first use, got %d", got)
	}
}

func TestReplayGuardErrors(t *testing.T) {
	mr, rdb := newRedisTest(t)
	g := NewReplayGuard(rdb, "aru")
	ctx := context.Background()

	if _, err := g.CheckAndMark(ctx, "X1", 0); !errors.Is(err, ErrReplayGuardTTL) {
		t.Fatalf("expected ttl error, got %v", err)
	}

	mr.Close()
	if _, err := g.CheckAndMark(ctx, "X1", time.Minute); !errors.Is(err, ErrReplayGuardBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
