// Package token encodes session claims into compact signed bearer tokens and
// decodes them back.
//
// # Schemes
//
// Every token is an HS256 JWT signed with a secret resolved per call through a
// [KeyFunc]. Two verification schemes share that secret:
//
//   - Primary ([Codec.Decode]): signature plus expiry window. Returns
//     [ErrTokenExpired] when the signature is valid but the window has elapsed,
//     and [ErrTokenInvalid] for everything else.
//   - Fallback ([Codec.RecoverSIDFromExpired]): signature only. Yields nothing
//     but the session id, for revocation of a session whose token expired.
//
// # What this package must NOT do
//
//   - Consult any session store or replay cache.
//   - Treat fallback-decoded data as authenticated claims.
//   - Cache the signing secret between calls.
package token
