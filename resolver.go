package goSession

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
)

// Identity fields read from a one-time code.
const (
	codeUsername = "username"
	codeEmail    = "email"
	codePackage  = "package"
	codePkgID    = "pkgid"
	codeRole     = "rolename"
	codePassword = "password"
	codeActive   = "active"
)

// Authenticate converts a one-time code into a new session. data holds the
// code's identity claims; code is the raw code string used as the replay key
// and expiresAt its exp. The replay marker is kept until expiresAt plus the
// token leeway, and never shorter than Replay.TTL. A zero expiresAt uses
// Replay.TTL alone.
//
// The side effects run in a fixed order: replay mark, account lookup or
// creation, session registration, login event. A replayed code yields an
// anonymous session and touches nothing else. A code is consumed even when a
// later step fails.
func (m *Manager) Authenticate(ctx context.Context, data Claims, code string, expiresAt time.Time) (Decision, error) {
	if m == nil {
		return anonymous(ReasonBackendUnavailable), ErrManagerNotReady
	}

	used, err := m.replay.CheckAndMark(ctx, code, m.markerTTL(expiresAt))
	if err != nil {
		m.backendDown(ctx, err, "replay guard")
		return anonymous(ReasonBackendUnavailable), nil
	}
	if used {
		m.metrics.Inc(MetricCodeReplayed)
		m.log(ctx).Debug().Msg("one-time code replayed")
		return anonymous(ReasonCodeReplayed), nil
	}

	acc, err := m.resolveAccount(ctx, data)
	if err != nil {
		m.log(ctx).Error().Err(err).Msg("account resolution failed")
		return anonymous(ReasonProvisioningFailed), err
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return anonymous(ReasonProvisioningFailed), fmt.Errorf("%w: %v", ErrSessionRegistrationFailed, err)
	}

	clientIP := clientIPFromContext(ctx)
	claims := Claims{
		ClaimUserID:     acc.ID,
		ClaimFresh:      true,
		ClaimIdentifier: internal.SessionIdentifier(clientIP, userAgentFromContext(ctx)),
	}

	now := m.now()
	rec := &session.Record{
		SessionID: sid,
		UserID:    acc.ID,
		Role:      acc.Role,
		CreatedAt: now.Unix(),
	}
	if err := m.registrar.Register(ctx, rec); err != nil {
		m.log(ctx).Error().Err(err).Str("user_id", acc.ID).Msg("session registration failed")
		return anonymous(ReasonProvisioningFailed), fmt.Errorf("%w: %v", ErrSessionRegistrationFailed, err)
	}

	m.events.Emit(ctx, LoginEvent{
		Timestamp:  now,
		UserID:     acc.ID,
		RemoteAddr: clientIP,
		SessionID:  sid,
	})
	m.metrics.Inc(MetricCodeLogin)
	m.log(ctx).Info().Str("sid", sid).Str("user_id", acc.ID).Msg("session opened from one-time code")

	return Decision{Session: newSession(sid, claims, true), Reason: ReasonLoggedIn}, nil
}

func (m *Manager) markerTTL(expiresAt time.Time) time.Duration {
	ttl := m.config.ReplayTTL()
	if expiresAt.IsZero() {
		return ttl
	}
	if rest := expiresAt.Sub(m.now()) + m.config.Token.Leeway; rest > ttl {
		return rest
	}
	return ttl
}

func (m *Manager) resolveAccount(ctx context.Context, data Claims) (*directory.Account, error) {
	username := strings.TrimSpace(data.String(codeUsername))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrAccountInvalid)
	}

	acc, err := m.directory.FindByUsername(ctx, username)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, directory.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
	}
	return m.provisionAccount(ctx, username, data)
}

// provisionAccount fills in defaults for every identity field the code left
// out and creates the account.
func (m *Manager) provisionAccount(ctx context.Context, username string, data Claims) (*directory.Account, error) {
	in := directory.AccountInput{
		Username: username,
		Email:    data.String(codeEmail),
		Package:  data.String(codePackage),
		Role:     data.String(codeRole),
		Password: data.String(codePassword),
		Active:   true,
	}

	if !data.Has(codePackage) {
		pkg, err := m.packageFor(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
		}
		in.Package = pkg.Name
	}
	if !data.Has(codeRole) {
		in.Role = m.config.Account.DefaultRole
	}
	if !data.Has(codePassword) {
		generated, err := internal.RandomPassword(m.config.Account.GeneratedPasswordLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
		}
		in.Password = generated
	}
	if !data.Has(codeEmail) && directory.LooksLikeEmail(username) {
		in.Email = username
	}
	if data.Has(codeActive) {
		in.Active = data.Bool(codeActive)
	}

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccountInvalid, err)
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrAccountInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
	}

	acc, err := m.directory.Create(ctx, in, hash)
	switch {
	case errors.Is(err, directory.ErrAccountExists):
		// another request provisioned the same username first
		if winner, ferr := m.directory.FindByUsername(ctx, username); ferr == nil {
			return winner, nil
		}
		return nil, ErrAccountExists
	case errors.Is(err, directory.ErrPackageNotFound):
		return nil, fmt.Errorf("%w: %v", ErrAccountInvalid, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrAccountCreationFailed, err)
	}

	m.metrics.Inc(MetricAccountProvisioned)
	m.log(ctx).Info().Str("user_id", acc.ID).Str("package", acc.Package).Msg("account provisioned")
	return acc, nil
}

// packageFor resolves pkgid, falling back to the default package when the id
// is missing, unparsable or unknown.
func (m *Manager) packageFor(ctx context.Context, data Claims) (*directory.Package, error) {
	if raw := data.String(codePkgID); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			pkg, err := m.directory.PackageByID(ctx, id)
			if err == nil {
				return pkg, nil
			}
			if !errors.Is(err, directory.ErrPackageNotFound) {
				return nil, err
			}
		}
	}
	return m.directory.DefaultPackage(ctx)
}
