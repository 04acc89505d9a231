package internal

import (
	"crypto/sha512"
	"encoding/hex"
)

// SessionIdentifier derives the per-session identifier stored under the "_id"
// claim from the caller's address and user agent. It is stable for the same
// client and distinct from the session id.
func SessionIdentifier(clientIP, userAgent string) string {
	sum := sha512.Sum512([]byte(clientIP + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}
