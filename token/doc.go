// Package token implements the HMAC access-token codec: minting and verifying
// short-lived JWTs with the claim set {sub, iat, exp, type}.
//
// # Failure taxonomy
//
// Verification failures collapse into exactly three sentinels:
//
//   - [ErrExpired] — authentic token past its expiry (refresh is possible)
//   - [ErrWrongType] — authentic token that is not an access token (matches ErrInvalid)
//   - [ErrInvalid] — everything else: malformed input, bad signature, wrong
//     algorithm, missing subject
//
// Expiry is only ever reported for tokens whose signature verified, so a
// forged token can never probe lifetime information.
//
// # Architecture boundaries
//
// This package owns claim shape and signature verification. Rollout gating,
// legacy fallback, and refresh rotation live above it in the Engine.
//
// # What this package must NOT do
//
//   - Perform I/O or touch Redis.
//   - Import authshift, refresh, or legacy.
//   - Treat [PeekSubject] output as authenticated identity.
package token
