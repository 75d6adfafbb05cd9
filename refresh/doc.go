// Package refresh persists rotating refresh-token records.
//
// # At-rest shape
//
// A [Record] holds the SHA-256 hash of the token secret plus audit metadata
// (user, IP, user agent, timestamps). The plaintext secret never reaches this
// package: callers hash it before lookup, and validation compares hashes.
//
// # Backends
//
//   - [RedisStore] — versioned binary blobs with a TTL and a per-user index
//     set; rotation is a Lua compare-and-swap that patches the hash in place
//     and preserves the remaining TTL.
//   - [PostgresStore] — refresh_tokens table (embedded goose migrations);
//     rotation is a conditional UPDATE, with a follow-up SELECT only to name
//     the failure reason.
//
// Both backends revoke a record when rotation sees a hash mismatch: a
// mismatch on a live record means an already-rotated secret was replayed.
//
// # Architecture boundaries
//
// This package owns persistence and the rotation CAS. Secret generation,
// composite-token encoding, and the decision to collapse NotFound/Expired on
// the wire belong to the Engine.
//
// # What this package must NOT do
//
//   - See, log, or store plaintext secrets.
//   - Import authshift or token.
//   - Mint access tokens.
package refresh
