// Package events implements asynchronous delivery of lifecycle events to a
// caller-supplied sink.
//
// # Components
//
//   - [Sink]: consumer interface for a single event type.
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//
// # What this package must NOT do
//
//   - Decide which events are emitted. That belongs to the session manager.
//   - Import goSession or any sibling internal package.
//   - Perform I/O beyond what a caller-supplied Sink does.
package events
