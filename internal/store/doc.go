// Package store provides SQLite-backed durable storage for simulation runs.
//
// The store keeps:
//   - Runs: one record per simulation, linked to the run it resumed from
//   - Samples: the sampled population trajectory of a run
//   - Snapshots: complete state dumps a run can be resumed from, with their
//     species (structure and population) and reactions (with the rule that
//     generated them)
//
// # Critical Patterns
//
// Logical Ordering
//   - Runs, samples and snapshot rows carry a seq INTEGER, NEVER a timestamp
//   - All list queries ORDER BY seq ASC (then id COLLATE BINARY) so results
//     are identical across machines
//
// Idempotent Writes
//   - Writing the same run, sample or snapshot twice is a no-op
//   - A snapshot is unique per (run_id, event_count)
//
// Content Verification
//   - Every snapshot stores its canonical digest (ir.SnapshotDigest)
//   - ReadSnapshot recomputes the digest and rejects a mismatch
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Structured columns (complexes, stoichiometry, populations) hold RFC 8785
// canonical JSON produced by ir.MarshalCanonical.
package store
