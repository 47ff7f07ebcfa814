// Package store provides SQLite-backed run history for the autoclicker.
//
// The store is an append-only log with:
//   - Runs: one row per Execute that passed its preconditions, finished with
//     its outcome, pass count and tap count
//   - Taps: one row per dispatched tap, keyed by (run_id, seq)
//
// # Ordering
//
// Taps are ordered by seq, the engine's logical counter, never by timestamp.
// Wall-clock columns (started_at, finished_at, at) are informational and
// stored as Unix milliseconds in UTC.
//
// Writes are idempotent: re-inserting a run or tap is silently ignored.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Taps must reference an existing run
//
// Recorder adapts a Store to engine.Observer, moving writes off the tap loop.
package store
