// Package internal contains helper utilities private to goSession: random
// session ids, generated account passwords and the per-session identifier.
//
// # Sub-packages
//
//   - events — async login event dispatch (Dispatcher + Sink implementations)
//   - stores — Redis-backed replay guard and settings lookup
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
