// Package stores provides small Redis-backed primitives shared by the session
// lifecycle: the one-time code replay guard and the system settings lookup.
//
// # Design
//
// The replay guard is a single SET NX PX per code. Marking is atomic across
// processes and the record expires with the code's own validity window, so
// the guard never grows beyond the set of codes that could still verify.
//
// # What this package must NOT do
//
//   - Import goSession or any sibling internal package.
//   - Store raw one-time codes (only their SHA-256 digest).
//   - Log secret values read from settings.
package stores
