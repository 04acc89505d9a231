package goSession

import "errors"

var (
	// ErrManagerNotReady is returned by methods called on a nil Manager.
	ErrManagerNotReady = errors.New("session manager not ready")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid session configuration")
	// ErrAccountInvalid is returned when a one-time code carries identity data
	// that cannot be provisioned (missing username, failed validation).
	ErrAccountInvalid = errors.New("invalid account data")
	// ErrAccountExists is returned when provisioning loses a uniqueness race
	// and the winning account cannot be read back.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountCreationFailed wraps directory and hashing failures during
	// account resolution.
	ErrAccountCreationFailed = errors.New("account creation failed")
	// ErrSessionRegistrationFailed is returned when the registrar cannot
	// persist the new session.
	ErrSessionRegistrationFailed = errors.New("session registration failed")
	// ErrSessionStoreUnavailable is returned by Save when revocation fails.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrUserRevocationUnsupported is returned by RevokeAllForUser when the
	// session store does not index sessions by user.
	ErrUserRevocationUnsupported = errors.New("session store cannot revoke by user")
	// ErrTokenIssueFailed is returned by Save when the outbound token cannot
	// be signed.
	ErrTokenIssueFailed = errors.New("token issue failed")
)
