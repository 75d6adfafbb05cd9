// Package rollout implements deterministic percentage-based cohort
// assignment for the hybrid auth migration.
//
// Users are hashed (salt + userID, xxhash64) into 100 stable buckets. A
// policy at N percent includes exactly buckets 0..N-1, which makes ramps
// monotonic: raising the percentage never flips an already-included user
// back to the legacy path.
//
// # Architecture boundaries
//
// The package is pure computation. It holds no state beyond its
// configuration and performs no I/O, so a Policy is safe for concurrent use
// and free to construct per request if needed.
//
// # What this package must NOT do
//
//   - No persistence. Cohort membership is derived, never stored.
//   - No per-user overrides. Allow-listing individual users belongs to the
//     caller, not the hash.
package rollout
