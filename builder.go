package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/events"
	"github.com/MrEthical07/goSession/internal/stores"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a [Manager]. Collaborators left unset default to Redis
// implementations when a client is supplied through WithRedis.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     SessionStore
	registrar SessionRegistrar
	replay    ReplayGuard
	directory Directory
	secrets   SecretSource
	hasher    password.Hasher
	loginSink LoginSink

	logger zerolog.Logger
	now    func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client behind the default session store, replay
// guard and secret override lookup.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionStore overrides the durable record store. If store also
// implements [SessionRegistrar] it registers new sessions too.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.store = store
	return b
}

func (b *Builder) WithRegistrar(r SessionRegistrar) *Builder {
	b.registrar = r
	return b
}

func (b *Builder) WithReplayGuard(g ReplayGuard) *Builder {
	b.replay = g
	return b
}

func (b *Builder) WithDirectory(d Directory) *Builder {
	b.directory = d
	return b
}

func (b *Builder) WithSecretSource(s SecretSource) *Builder {
	b.secrets = s
	return b
}

func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

// WithLoginSink enables asynchronous login event delivery to sink.
func (b *Builder) WithLoginSink(sink LoginSink) *Builder {
	b.loginSink = sink
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token timestamps, records and events.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Manager. A Builder can be
// used once.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("directory required")
	}

	// -------- SESSION STORE --------
	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("session store or redis client required")
		}
		store = session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.RecordTTL, cfg.Session.SlidingExpiration).
			WithClock(b.now)
	}

	registrar := b.registrar
	if registrar == nil {
		r, ok := store.(SessionRegistrar)
		if !ok {
			return nil, errors.New("session registrar required: store cannot register sessions")
		}
		registrar = r
	}

	// -------- REPLAY GUARD --------
	replay := b.replay
	if replay == nil {
		if b.redis == nil {
			return nil, errors.New("replay guard or redis client required")
		}
		replay = stores.NewReplayGuard(b.redis, cfg.Replay.RedisPrefix)
	}

	secrets := b.secrets
	if secrets == nil && b.redis != nil {
		secrets = stores.NewSettings(b.redis, "settings")
	}

	hasher := b.hasher
	if hasher == nil {
		h, err := password.NewArgon2(cfg.Account.Password)
		if err != nil {
			return nil, err
		}
		hasher = h
	}

	m := &Manager{
		config:    cfg,
		store:     store,
		registrar: registrar,
		replay:    replay,
		directory: b.directory,
		secrets:   secrets,
		hasher:    hasher,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    b.logger,
		now:       b.now,
	}

	codec, err := token.NewCodec(token.Config{
		Lifetime: cfg.Token.Lifetime,
		Issuer:   cfg.Token.Issuer,
		Leeway:   cfg.Token.Leeway,
		Key:      m.signingKey,
		Now:      b.now,
	})
	if err != nil {
		return nil, err
	}
	m.codec = codec

	m.events = events.NewDispatcher[LoginEvent](events.Config{
		Enabled:    b.loginSink != nil,
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
	}, b.loginSink)

	b.built = true

	return m, nil
}
