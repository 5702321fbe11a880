// Package persist provides the key/value persistence used by persisted
// state cells.
//
// Values are stored as JSON under string keys of the form "namespace:name".
// A KV wraps a Backend and never returns errors to its callers: backend and
// encoding failures are logged and the KV behaves as if nothing were stored.
//
// # Backends
//
//   - Memory: process-local map, the default
//   - SQLite: single-file database (WAL mode, embedded schema)
//   - Redis: keys under a configurable prefix
//   - Null: stores nothing, for environments without a medium
//
// # Numbers
//
// JSON decoding uses json.Number; integral values come back as int64 and
// everything else as float64, so integer-typed cells survive a round trip.
package persist
