// Package legacy adapts the pre-migration session system so the hybrid
// resolver can fall back to it for users outside the token cohort.
//
// The central abstraction is [Validator]: given an opaque credential it
// returns the owning user ID, ErrSessionInvalid, or ErrUnavailable. The
// bundled [RedisValidator] serves deployments that mirror legacy sessions
// into Redis; anything else (an HTTP call into the monolith, a database
// lookup) plugs in through [ValidatorFunc].
//
// # What this package must NOT do
//
//   - No credential material at rest. RedisValidator keys sessions by
//     HMAC-SHA256 digest only.
//   - No session creation for end users. The legacy system remains the
//     writer of record; Save exists for mirrors and tests.
//   - No retries or caching. Availability handling belongs to the caller.
package legacy
