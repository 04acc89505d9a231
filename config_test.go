package goSession

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "token lifetime zero",
			mutate: func(c *Config) {
				c.Token.Lifetime = 0
			},
			wantValid: false,
		},
		{
			name: "token leeway valid",
			mutate: func(c *Config) {
				c.Token.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "token leeway too large",
			mutate: func(c *Config) {
				c.Token.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "secret too short",
			mutate: func(c *Config) {
				c.Token.Secret = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "header name missing",
			mutate: func(c *Config) {
				c.Token.HeaderName = ""
			},
			wantValid: false,
		},
		{
			name: "record ttl negative",
			mutate: func(c *Config) {
				c.Session.RecordTTL = -time.Second
			},
			wantValid: false,
		},
		{
			name: "record ttl zero keeps records",
			mutate: func(c *Config) {
				c.Session.RecordTTL = 0
			},
			wantValid: true,
		},
		{
			name: "replay ttl not above leeway",
			mutate: func(c *Config) {
				c.Token.Leeway = time.Minute
				c.Replay.TTL = time.Minute
			},
			wantValid: false,
		},
		{
			name: "replay ttl negative",
			mutate: func(c *Config) {
				c.Replay.TTL = -time.Second
			},
			wantValid: false,
		},
		{
			name: "default role missing",
			mutate: func(c *Config) {
				c.Account.DefaultRole = ""
			},
			wantValid: false,
		},
		{
			name: "generated password too short",
			mutate: func(c *Config) {
				c.Account.GeneratedPasswordLength = 5
			},
			wantValid: false,
		},
		{
			name: "generated password too long",
			mutate: func(c *Config) {
				c.Account.GeneratedPasswordLength = 65
			},
			wantValid: false,
		},
		{
			name: "argon2 memory too low",
			mutate: func(c *Config) {
				c.Account.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "event buffer zero",
			mutate: func(c *Config) {
				c.Events.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid {
				if err == nil {
					t.Fatal("expected invalid config, got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestReplayTTLDefaultsToTokenWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Token.Lifetime = 10 * time.Minute
	cfg.Token.Leeway = 30 * time.Second
	if got := cfg.ReplayTTL(); got != 10*time.Minute+30*time.Second {
		t.Fatalf("expected lifetime plus leeway, got %v", got)
	}

	cfg.Replay.TTL = time.Hour
	if got := cfg.ReplayTTL(); got != time.Hour {
		t.Fatalf("expected explicit ttl, got %v", got)
	}
}

func TestBuilderCopiesSecret(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.Token.Secret[0] = 'X'

	if b.config.Token.Secret[0] == 'X' {
		t.Fatal("builder must not alias the caller's secret")
	}
}
