// Package store provides SQL-backed durable storage for warden.
//
// Two tables carry runtime data:
//   - state_blobs: the canonical JSON condition state, one row per subject
//   - trigger_log: append-only rule trigger entries, ordered by logical seq
//
// SQLite is the default backend; PostgreSQL is selected with a postgres://
// URL. Queries live in embedded queries/*.sql files and are looked up by
// name, with placeholders rebound for the active driver.
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
