// Package audit implements asynchronous delivery of session lifecycle events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured record of one session transition or completion outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; SessionContext, the request pipeline and the OAuth handler do.
//
// # What this package must NOT do
//
//   - Carry raw session tokens in events.
//   - Import goAuthClient or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
