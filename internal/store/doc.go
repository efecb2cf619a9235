// Package store provides the SQLite-backed evaluation journal.
//
// The journal is append-only:
//   - Evaluations: one row per evaluation, successful or failed, with
//     the script hash, the fingerprint and the canonical snapshot
//   - Evaluation steps: the ordered trace of each evaluation
//
// Rows are ordered by seq, a logical clock assigned when an evaluation
// is written. Wall time is never recorded, so two journals built from
// the same inputs in the same order are identical apart from ids.
//
// Writing the same evaluation id twice is a no-op. The evaluator never
// reads the journal back; it exists for audit.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
