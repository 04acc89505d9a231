// Package goSession implements stateless bearer-token sessions backed by a
// server-side revocation list.
//
// A session's claims live entirely in a signed token. The server keeps only a
// durable record per live session id, so the store doubles as a revocation
// list: deleting the record invalidates every token that names it.
//
// # Lifecycle
//
// [Manager.Open] turns an inbound credential into a [Decision]. Every
// credential failure degrades to an anonymous session with an enumerated
// [Reason]; only identity provisioning failures are returned as errors.
// [Manager.Save] runs at response time and decides whether to delete the
// durable record, emit a fresh token, or do nothing.
//
// One-time authentication codes (sid-less tokens with auth=true) are consumed
// through [Manager.Authenticate]: the code is marked used, the account is
// resolved or provisioned, the session is registered and a [LoginEvent] is
// emitted, in that order.
//
// # What this package must NOT do
//
//   - Trust claims recovered from an expired token for anything but revocation.
//   - Log tokens, codes or passwords.
//   - Recreate a durable record for a session id it did not just mint.
package goSession
