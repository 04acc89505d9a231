package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var ErrSettingsBackend = errors.New("settings backend unavailable")

// Settings reads system-wide setting overrides kept in Redis under
// "<prefix>:<name>". Values are read on every call so updates apply to the
// next request.
type Settings struct {
	redis  redis.UniversalClient
	prefix string
}

func NewSettings(redisClient redis.UniversalClient, prefix string) *Settings {
	if prefix == "" {
		prefix = "settings"
	}
	return &Settings{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Settings) key(name string) string {
	return s.prefix + ":" + name
}

// Get returns the setting value and whether it is set to a non-empty value.
func (s *Settings) Get(ctx context.Context, name string) (string, bool, error) {
	v, err := s.redis.Get(ctx, s.key(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrSettingsBackend, err)
	}
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// Set stores a setting value. An empty value clears the override.
func (s *Settings) Set(ctx context.Context, name, value string) error {
	var err error
	if value == "" {
		err = s.redis.Del(ctx, s.key(name)).Err()
	} else {
		err = s.redis.Set(ctx, s.key(name), value, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSettingsBackend, err)
	}
	return nil
}
