// Package authshift provides a hybrid authentication engine for migrating a
// legacy server-side-session system to JWT access tokens with rotating opaque
// refresh tokens, behind a percentage-based rollout policy.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authshift is the public surface. It exposes [Engine], [Builder], [Config], and value
// types (Principal, TokenPair, MetricsSnapshot, etc.). All internal coordination — flow
// orchestration, refresh-record encoding, rate limiting, audit dispatch — lives under
// internal/ and is never exported. Leaf concerns with a reusable public contract (token
// codec, refresh stores, rollout policy, legacy validator, client-side refresh
// coordination) live in their own subpackages.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Persist or log a refresh secret in plaintext anywhere, ever.
//
// # Performance contract
//
// Resolve is the hot path. A token-path success completes without any Redis
// round-trip; the legacy fallback and Refresh are allowed one round-trip per
// call.
package authshift
