package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/session"
)

// Reason names the path Open took to reach its decision.
type Reason uint8

const (
	// ReasonNoToken: the request carried no credential.
	ReasonNoToken Reason = iota
	// ReasonInvalidToken: malformed token, bad signature or wrong key.
	ReasonInvalidToken
	// ReasonExpiredRevoked: the token expired; its durable record was deleted.
	ReasonExpiredRevoked
	// ReasonExpiredUnrecoverable: the token expired and no sid could be
	// recovered from it.
	ReasonExpiredUnrecoverable
	// ReasonUnknownSession: the token names a sid without a durable record.
	ReasonUnknownSession
	// ReasonNotAuthRequest: a sid-less token that is not a one-time code.
	ReasonNotAuthRequest
	// ReasonCodeReplayed: the one-time code was already used.
	ReasonCodeReplayed
	// ReasonBackendUnavailable: a store, replay guard or secret lookup failed.
	ReasonBackendUnavailable
	// ReasonResumed: a live session was reconstructed from its token.
	ReasonResumed
	// ReasonLoggedIn: a one-time code produced a new session.
	ReasonLoggedIn
	// ReasonProvisioningFailed: a fresh one-time code could not be turned
	// into a session; Open also returns the error.
	ReasonProvisioningFailed
)

var reasonNames = [...]string{
	ReasonNoToken:              "no_token",
	ReasonInvalidToken:         "invalid_token",
	ReasonExpiredRevoked:       "expired_revoked",
	ReasonExpiredUnrecoverable: "expired_unrecoverable",
	ReasonUnknownSession:       "unknown_session",
	ReasonNotAuthRequest:       "not_auth_request",
	ReasonCodeReplayed:         "code_replayed",
	ReasonBackendUnavailable:   "backend_unavailable",
	ReasonResumed:              "resumed",
	ReasonLoggedIn:             "logged_in",
	ReasonProvisioningFailed:   "provisioning_failed",
}

func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Decision is the outcome of opening a session. Session is never nil.
type Decision struct {
	Session *Session
	Reason  Reason
}

// Authenticated reports whether the decision carries a live session.
func (d Decision) Authenticated() bool {
	return d.Reason == ReasonResumed || d.Reason == ReasonLoggedIn
}

func anonymous(reason Reason) Decision {
	return Decision{Session: newAnonymousSession(), Reason: reason}
}

// SessionStore is the durable session record store used for liveness checks
// and revocation.
type SessionStore interface {
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionRegistrar persists the durable record of a newly minted session.
type SessionRegistrar interface {
	Register(ctx context.Context, rec *session.Record) error
}

// UserSessionRevoker is implemented by stores that index sessions by user.
type UserSessionRevoker interface {
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

// ReplayGuard marks one-time codes as used. CheckAndMark must be atomic
// across processes.
type ReplayGuard interface {
	CheckAndMark(ctx context.Context, code string, ttl time.Duration) (alreadyUsed bool, err error)
}

// SecretSource looks up a system setting override for the signing secret.
type SecretSource interface {
	Get(ctx context.Context, name string) (value string, ok bool, err error)
}

// Directory resolves and provisions accounts.
type Directory = directory.Directory
