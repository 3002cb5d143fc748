// Package store keeps interpreter run history in SQLite.
//
// Two tables:
//   - runs: one row per run, with its status and failure code
//   - step_results: one row per executed step, with the result as
//     canonical JSON and its content hash
//
// Step results are ordered by the run's seq column, never by wall time.
// Writes use ON CONFLICT DO NOTHING, so recording the same step twice
// keeps the first result.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
