package stores

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrReplayGuardBackend = errors.New("replay guard backend unavailable")
	ErrReplayGuardTTL     = errors.New("replay guard ttl must be positive")
)

// ReplayGuard records one-time authentication codes as used. The check and
// the mark are a single SET NX, so concurrent requests presenting the same
// code observe exactly one first use.
type ReplayGuard struct {
	redis  redis.UniversalClient
	prefix string
}

func NewReplayGuard(redisClient redis.UniversalClient, prefix string) *ReplayGuard {
	if prefix == "" {
		prefix = "aru"
	}
	return &ReplayGuard{
		redis:  redisClient,
		prefix: prefix,
	}
}

// key stores a digest of the code, never the code itself.
func (g *ReplayGuard) key(code string) string {
	sum := sha256.Sum256([]byte(code))
	return g.prefix + ":" + base64.RawURLEncoding.EncodeToString(sum[:])
}

// CheckAndMark marks code as used for ttl and reports whether it had already
// been used.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, code string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrReplayGuardTTL
	}

	set, err := g.redis.SetNX(ctx, g.key(code), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrReplayGuardBackend, err)
	}
	return !set, nil
}

// Used reports whether code is currently marked, without marking it.
func (g *ReplayGuard) Used(ctx context.Context, code string) (bool, error) {
	n, err := g.redis.Exists(ctx, g.key(code)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrReplayGuardBackend, err)
	}
	return n > 0, nil
}
