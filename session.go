package goSession

import "github.com/MrEthical07/goSession/token"

// Claims is the key/value payload carried by a session token.
type Claims = token.Claims

// Reserved claim keys.
const (
	ClaimUserID     = "user_id"
	ClaimFresh      = "_fresh"
	ClaimIdentifier = "_id"
)

// Session is a request-scoped view of a session: an optional durable id plus
// the claims carried in its token. A Session is not safe for concurrent use;
// it lives for one request.
type Session struct {
	sid      string
	claims   Claims
	isNew    bool
	modified bool
}

func newAnonymousSession() *Session {
	return &Session{claims: Claims{}, isNew: true}
}

func newSession(sid string, claims Claims, isNew bool) *Session {
	if claims == nil {
		claims = Claims{}
	}
	return &Session{sid: sid, claims: claims, isNew: isNew}
}

// SID returns the durable session id, or "" for an anonymous session.
func (s *Session) SID() string {
	if s == nil {
		return ""
	}
	return s.sid
}

// Anonymous reports whether the session has no durable id.
func (s *Session) Anonymous() bool {
	return s.SID() == ""
}

// UserID returns the user_id claim rendered as a string.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.claims.String(ClaimUserID)
}

func (s *Session) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.claims[key]
	return v, ok
}

// Set stores a claim and marks the session modified.
func (s *Session) Set(key string, value any) {
	s.claims[key] = value
	s.modified = true
}

// Delete removes a claim and marks the session modified.
func (s *Session) Delete(key string) {
	if _, ok := s.claims[key]; !ok {
		return
	}
	delete(s.claims, key)
	s.modified = true
}

// Clear removes every claim. Saving a cleared session revokes it.
func (s *Session) Clear() {
	if len(s.claims) == 0 {
		return
	}
	s.claims = Claims{}
	s.modified = true
}

func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	return len(s.claims)
}

// Claims returns a copy of the session claims.
func (s *Session) Claims() Claims {
	if s == nil {
		return Claims{}
	}
	return s.claims.Clone()
}

// IsNew reports whether the session was not reconstructed from an inbound
// session token.
func (s *Session) IsNew() bool {
	return s == nil || s.isNew
}

// Modified reports whether a mutator ran since the session was opened.
func (s *Session) Modified() bool {
	return s != nil && s.modified
}
