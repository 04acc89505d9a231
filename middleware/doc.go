// Package middleware adapts a goSession.Manager to net/http.
//
// # Handlers
//
//   - [Sessions] opens the request's session and saves it before the
//     response header is written.
//   - [RequireLogin] rejects anonymous requests with 401.
//
// The credential is read from the manager's header (X-Auth-Token by default)
// and, when the header is absent, from its query parameter (token2).
//
// This package translates HTTP semantics into Manager calls. It does not
// parse tokens or touch Redis itself.
package middleware
