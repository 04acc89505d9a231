package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/internal/events"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/token"
	"github.com/rs/zerolog"
)

// Manager opens and saves sessions. It holds no per-request state and is
// safe for concurrent use once built.
type Manager struct {
	config Config

	codec     *token.Codec
	store     SessionStore
	registrar SessionRegistrar
	replay    ReplayGuard
	directory Directory
	secrets   SecretSource
	hasher    password.Hasher

	events  *events.Dispatcher[LoginEvent]
	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// log prefers a request-scoped logger placed in ctx.
func (m *Manager) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &m.logger
}

func (m *Manager) backendDown(ctx context.Context, err error, component string) {
	m.metrics.Inc(MetricBackendUnavailable)
	m.log(ctx).Warn().Err(err).Str("component", component).Msg("session backend unavailable")
}

// Open turns an inbound credential into a [Decision]. Credential failures are
// never errors: they yield an anonymous session and a Reason. An error is
// returned only when a fresh one-time code fails to provision an identity.
func (m *Manager) Open(ctx context.Context, tokenStr string) (Decision, error) {
	if m == nil {
		return anonymous(ReasonBackendUnavailable), ErrManagerNotReady
	}

	start := time.Now()
	d, err := m.open(ctx, tokenStr)
	m.metrics.Observe(MetricOpenLatency, time.Since(start))
	m.record(d)

	if !d.Authenticated() {
		m.log(ctx).Debug().Str("reason", d.Reason.String()).Msg("anonymous session")
	}
	return d, err
}

func (m *Manager) open(ctx context.Context, tokenStr string) (Decision, error) {
	if tokenStr == "" {
		return anonymous(ReasonNoToken), nil
	}

	claims, expiresAt, err := m.codec.DecodeWithExpiry(ctx, tokenStr)
	switch {
	case err == nil:
		return m.resolve(ctx, claims, tokenStr, expiresAt)
	case errors.Is(err, token.ErrTokenExpired):
		return m.revokeExpired(ctx, tokenStr), nil
	case errors.Is(err, token.ErrSecretUnavailable):
		m.backendDown(ctx, err, "secret")
		return anonymous(ReasonBackendUnavailable), nil
	default:
		return anonymous(ReasonInvalidToken), nil
	}
}

// revokeExpired recovers the sid of an expired token and deletes its record.
// Nothing else from the token is trusted.
func (m *Manager) revokeExpired(ctx context.Context, tokenStr string) Decision {
	sid, err := m.codec.RecoverSIDFromExpired(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, token.ErrSecretUnavailable) {
			m.backendDown(ctx, err, "secret")
			return anonymous(ReasonBackendUnavailable)
		}
		return anonymous(ReasonExpiredUnrecoverable)
	}

	if err := m.store.Delete(ctx, sid); err != nil {
		m.backendDown(ctx, err, "session store")
		return anonymous(ReasonBackendUnavailable)
	}
	m.metrics.Inc(MetricSessionDeleted)
	m.log(ctx).Debug().Str("sid", sid).Msg("expired session revoked")
	return anonymous(ReasonExpiredRevoked)
}

// resolve dispatches decoded claims: a sid means resume, no sid plus
// auth=true means a one-time code, anything else is anonymous.
func (m *Manager) resolve(ctx context.Context, claims Claims, tokenStr string, expiresAt time.Time) (Decision, error) {
	sid := claims.SID()
	data := claims.Clone()
	delete(data, token.KeySID)

	if sid == "" {
		if !data.Bool(token.KeyAuth) {
			return anonymous(ReasonNotAuthRequest), nil
		}
		delete(data, token.KeyAuth)
		return m.Authenticate(ctx, data, tokenStr, expiresAt)
	}

	ok, err := m.store.Exists(ctx, sid)
	if err != nil {
		m.backendDown(ctx, err, "session store")
		return anonymous(ReasonBackendUnavailable), nil
	}
	if !ok {
		return anonymous(ReasonUnknownSession), nil
	}
	return Decision{Session: newSession(sid, data, false), Reason: ReasonResumed}, nil
}

func (m *Manager) record(d Decision) {
	switch d.Reason {
	case ReasonResumed:
		m.metrics.Inc(MetricOpenResumed)
		return
	case ReasonLoggedIn:
		return
	case ReasonInvalidToken:
		m.metrics.Inc(MetricInvalidToken)
	case ReasonExpiredRevoked:
		m.metrics.Inc(MetricExpiredRevoked)
	case ReasonUnknownSession:
		m.metrics.Inc(MetricUnknownSession)
	}
	m.metrics.Inc(MetricOpenAnonymous)
}

// Save runs at response time. In order:
//
//  1. a session without a sid is left alone;
//  2. a session with no claims has its durable record deleted;
//  3. a session without user_id is left alone;
//  4. otherwise a token is written to the response header unless the
//     header is already present.
func (m *Manager) Save(ctx context.Context, s *Session, header http.Header) error {
	if m == nil {
		return ErrManagerNotReady
	}
	if s == nil || s.sid == "" {
		return nil
	}

	if len(s.claims) == 0 {
		if err := m.store.Delete(ctx, s.sid); err != nil {
			m.backendDown(ctx, err, "session store")
			return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
		}
		m.metrics.Inc(MetricSessionDeleted)
		m.log(ctx).Debug().Str("sid", s.sid).Msg("session revoked")
		return nil
	}

	if v, ok := s.claims[ClaimUserID]; !ok || v == nil {
		return nil
	}

	if header == nil {
		return fmt.Errorf("%w: nil response header", ErrTokenIssueFailed)
	}
	name := m.config.Token.HeaderName
	if len(header.Values(name)) > 0 {
		return nil
	}

	tok, err := m.codec.Encode(ctx, s.claims, s.sid)
	if err != nil {
		m.log(ctx).Error().Err(err).Str("sid", s.sid).Msg("token issue failed")
		return fmt.Errorf("%w: %v", ErrTokenIssueFailed, err)
	}
	header.Set(name, tok)
	m.metrics.Inc(MetricTokenIssued)
	return nil
}

// IssueCode mints a one-time authentication code carrying identity fields
// such as username, email, package or pkgid. ttl is capped so that the
// replay marker outlives the code; a non-positive ttl takes the cap.
func (m *Manager) IssueCode(ctx context.Context, identity Claims, ttl time.Duration) (string, error) {
	if m == nil {
		return "", ErrManagerNotReady
	}
	maxTTL := m.config.ReplayTTL() - m.config.Token.Leeway
	if ttl <= 0 || ttl > maxTTL {
		ttl = maxTTL
	}
	return m.codec.IssueCode(ctx, identity, ttl)
}

// RevokeSession deletes the durable record of sid.
func (m *Manager) RevokeSession(ctx context.Context, sid string) error {
	if m == nil {
		return ErrManagerNotReady
	}
	if err := m.store.Delete(ctx, sid); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	m.metrics.Inc(MetricSessionDeleted)
	return nil
}

// RevokeAllForUser deletes every durable record of userID and returns how
// many were removed.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	if m == nil {
		return 0, ErrManagerNotReady
	}
	revoker, ok := m.store.(UserSessionRevoker)
	if !ok {
		return 0, ErrUserRevocationUnsupported
	}
	n, err := revoker.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}
	for i := 0; i < n; i++ {
		m.metrics.Inc(MetricSessionDeleted)
	}
	m.log(ctx).Info().Str("user_id", userID).Int("revoked", n).Msg("user sessions revoked")
	return n, nil
}

// HeaderName is the request and response header carrying the token.
func (m *Manager) HeaderName() string {
	return m.config.Token.HeaderName
}

// QueryParam is the query parameter accepted when the header is absent.
func (m *Manager) QueryParam() string {
	return m.config.Token.QueryParam
}

// MetricsSnapshot returns a point-in-time copy of the session counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return m.metrics.Snapshot()
}

// DroppedLoginEvents returns how many login events the dispatcher dropped.
func (m *Manager) DroppedLoginEvents() uint64 {
	if m == nil {
		return 0
	}
	return m.events.Dropped()
}

// Close drains pending login events.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.events.Close()
}
