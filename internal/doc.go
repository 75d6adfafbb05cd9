// Package internal contains helper utilities that are intentionally private to authshift,
// including secure random generation, refresh-token encoding, and key derivation.
//
// # Sub-packages
//
//   - flows — pure-function flow orchestrators for every Engine operation
//   - rate — core Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public authshift API.
//   - Be imported by any package outside the authshift module.
package internal
