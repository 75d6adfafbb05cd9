// Package middleware exposes HTTP middleware adapters for hybrid, token-only,
// and legacy-only authentication enforcement built on top of authshift.Engine
// resolution.
//
// # Guards
//
//   - [Guard] — enforces an explicit mode, or the engine's configured mode
//     via authshift.ModeInherit.
//   - [RequireTokenOnly] — stateless token verification, no Redis call.
//   - [RequireLegacyOnly] — legacy session lookup only, no token parsing.
//
// Each guard reads the Authorization header, calls Engine.ResolveWithMode, and
// injects the resolved principal into the request context. Rejections are JSON
// bodies carrying a stable error_code: token_expired tells the client to run
// its refresh flow, token_invalid and unauthenticated tell it to re-login, and
// backend_unavailable (HTTP 503) tells it to retry.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine resolution.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the resolver.
package middleware
