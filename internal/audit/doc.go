// Package audit implements async event dispatching for session lifecycle operations.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//   - [Event]: record with id, timestamp, type, user id, request id and metadata.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. Which events are emitted is decided by
// the Engine.
//
// # What this package must NOT do
//
//   - Filter events based on business logic.
//   - Import goAuthClient or any sibling internal package.
package audit
