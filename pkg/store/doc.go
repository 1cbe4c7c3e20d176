// Package store defines the persistence boundary the SDK saves its state
// through.
//
// # Overview
//
// The coordinator persists three values between runs: the cached Environment,
// the cached Client, and the captured Authorization header (which carries the
// dev browser token on development instances). Store is the small key/value
// interface those writes go through; any backend that can hold a few JSON
// blobs qualifies.
//
// Four implementations ship with the SDK:
//
//   - MemoryStore: process-local, the default when no store is configured
//   - FileStore: one JSON file per key with atomic replace, optional
//     fsnotify-based watching for multi-process setups
//   - RedisStore: shared state across processes via Redis
//   - SQLStore: a clerk_state table on PostgreSQL or SQLite
//
// WithPrefix namespaces keys so several SDK instances can share a backend.
// There is no cross-key transactionality: a crash between two Sets can leave
// one key stale, which the coordinator tolerates by re-deriving from the
// server on the next load.
//
// # Related Packages
//
//   - pkg/clerk: persists snapshots through this interface
//   - pkg/fapi: replays the persisted authorization header
package store
