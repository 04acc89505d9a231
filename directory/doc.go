// Package directory is the identity directory collaborator: it finds
// accounts by username, resolves billing packages and provisions accounts on
// first sign-on.
//
// [Memory] serves tests and the demo server; [Postgres] runs against a pgx
// pool. Both compare usernames case-insensitively.
package directory
