// Package session provides the durable session record stores that back
// revocation: a record existing under a session id means the session is live,
// deleting it revokes every token that names that id.
//
// # Stores
//
//   - [Store]: Redis, compact binary record plus a per-user index set.
//   - [PostgresStore]: the same operations over a pgx connection.
//
// Claims are never stored here. Records carry only the owning user id, role
// and creation time, so their size does not grow with the session payload.
//
// # What this package must NOT do
//
//   - Import goSession or token (no upward imports).
//   - Recreate a record as a side effect of a read.
package session
