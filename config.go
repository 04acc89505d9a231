package goSession

import (
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/password"
)

const maxTokenLeeway = 2 * time.Minute

// Config holds every Manager setting. Obtain defaults from [DefaultConfig]
// and override fields before passing it to [Builder.WithConfig].
type Config struct {
	Token   TokenConfig
	Session SessionConfig
	Replay  ReplayConfig
	Account AccountConfig
	Events  EventsConfig
	Metrics MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls token signing and transport.
type TokenConfig struct {
	Lifetime time.Duration
	Issuer   string
	Leeway   time.Duration
	// Secret signs tokens unless the SecretSource holds an override under
	// SecretSettingName.
	Secret            []byte
	SecretSettingName string
	HeaderName        string
	QueryParam        string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the durable session records.
type SessionConfig struct {
	RedisPrefix string
	// RecordTTL bounds how long an idle record lives. Zero stores records
	// without expiry.
	RecordTTL         time.Duration
	SlidingExpiration bool
}

/*
====================================
REPLAY CONFIG
====================================
*/

// ReplayConfig controls one-time code replay markers.
type ReplayConfig struct {
	RedisPrefix string
	// TTL of a used-code marker. Zero means Token.Lifetime + Token.Leeway,
	// which outlives every code the codec accepts.
	TTL time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls first sign-on provisioning.
type AccountConfig struct {
	DefaultRole             string
	GeneratedPasswordLength int
	Password                password.Config
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig controls login event dispatch.
type EventsConfig struct {
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a Config with every default applied. Token.Secret is
// left empty and must be set.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Lifetime:          time.Hour,
			Issuer:            "goSession",
			Leeway:            0,
			SecretSettingName: "sso_secret_key",
			HeaderName:        "X-Auth-Token",
			QueryParam:        "token2",
		},
		Session: SessionConfig{
			RedisPrefix:       "as",
			RecordTTL:         30 * 24 * time.Hour,
			SlidingExpiration: true,
		},
		Replay: ReplayConfig{
			RedisPrefix: "aru",
			TTL:         0,
		},
		Account: AccountConfig{
			DefaultRole:             "User",
			GeneratedPasswordLength: 20,
			Password:                password.DefaultConfig(),
		},
		Events: EventsConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ReplayTTL returns the effective used-code marker lifetime.
func (c *Config) ReplayTTL() time.Duration {
	if c.Replay.TTL > 0 {
		return c.Replay.TTL
	}
	return c.Token.Lifetime + c.Token.Leeway
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	// Token
	if c.Token.Lifetime <= 0 {
		return invalidConfig("Token Lifetime must be > 0")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > maxTokenLeeway {
		return invalidConfig("Token Leeway must be between 0 and 2m")
	}
	if len(c.Token.Secret) < 32 {
		return invalidConfig("Token Secret must be at least 32 bytes")
	}
	if c.Token.HeaderName == "" {
		return invalidConfig("Token HeaderName must be set")
	}

	// Session
	if c.Session.RecordTTL < 0 {
		return invalidConfig("Session RecordTTL must be >= 0")
	}

	// Replay
	if c.Replay.TTL < 0 {
		return invalidConfig("Replay TTL must be >= 0")
	}
	if c.Replay.TTL > 0 && c.Replay.TTL <= c.Token.Leeway {
		return invalidConfig("Replay TTL must exceed Token Leeway")
	}

	// Account
	if c.Account.DefaultRole == "" {
		return invalidConfig("Account DefaultRole must be set")
	}
	if c.Account.GeneratedPasswordLength < password.MinPasswordBytes || c.Account.GeneratedPasswordLength > 64 {
		return invalidConfig("Account GeneratedPasswordLength must be between 6 and 64")
	}
	if err := c.Account.Password.Validate(); err != nil {
		return invalidConfig("Account Password: " + err.Error())
	}

	// Events
	if c.Events.BufferSize <= 0 {
		return invalidConfig("Events BufferSize must be > 0")
	}

	return nil
}

func invalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
