// Package store provides SQLite-backed durable storage for reconciled
// pump sessions.
//
// The store is an append-only log with two tables:
//   - sessions: one row per reconciled session (id, name, device id)
//   - records: the session's canonical records, in output order
//
// Record rows are keyed by (session_id, record id), where the record id is
// the content address computed by record.ID. Writing the same session
// twice is a no-op.
//
// # Ordering
//
// Ordering uses seq INTEGER (logical position), never timestamps. All
// record queries use ORDER BY seq ASC, id COLLATE BINARY ASC so identical
// databases give identical reads.
//
// # Schema Version
//
// Open creates the schema in a fresh database and stamps PRAGMA
// user_version. A database stamped with a newer version is rejected with
// ErrSchemaTooNew rather than written with a schema it does not know.
//
// # Database Configuration
//
// Set through connection parameters on every connection:
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
