// Package storage provides durable string-keyed persistence backends for the
// session record.
//
// # Backends
//
//   - [MemoryBackend]: process-local map; the default.
//   - [RedisBackend]: go-redis client; entries written in one MULTI/EXEC.
//   - [FileBackend]: a single JSON document on disk, replaced atomically.
//
// # Architecture boundaries
//
// This package stores opaque strings. It does NOT parse tokens, decode profiles, or
// decide whether a record is valid; that belongs to the SessionStore in goAuthClient.
//
// # What this package must NOT do
//
//   - Import goAuthClient or token (no upward imports).
//   - Log or otherwise expose stored values.
package storage
