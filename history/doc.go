// Package history records worker transcripts keyed by thread ID. Worker
// endpoints wrap their adapter with Record so every message a served runtime
// appends is persisted as it streams out.
//
// Two stores are provided: InMemoryStore for tests and ephemeral servers, and
// SQLiteStore (modernc.org/sqlite, no cgo) for durable endpoints.
package history
