package flows

import (
	"context"
	"errors"
)

// ModeResolverConfig lets the host package describe its mode enum as plain
// ints so flows can resolve per-call overrides without importing host types.
type ModeResolverConfig struct {
	ModeInherit    int
	ModeHybrid     int
	ModeTokenOnly  int
	ModeLegacyOnly int
}

// ResolveRouteMode resolves a per-call mode override against the engine
// default mode. Inherit adopts the engine default; concrete modes pass
// through. Unknown values report false.
func ResolveRouteMode(routeMode, engineMode int, cfg ModeResolverConfig) (int, bool) {
	switch routeMode {
	case cfg.ModeInherit:
		switch engineMode {
		case cfg.ModeHybrid, cfg.ModeTokenOnly, cfg.ModeLegacyOnly:
			return engineMode, true
		default:
			return 0, false
		}
	case cfg.ModeHybrid, cfg.ModeTokenOnly, cfg.ModeLegacyOnly:
		return routeMode, true
	default:
		return 0, false
	}
}

// ResolveFailureKind classifies resolution failures for root-level mapping.
type ResolveFailureKind int

const (
	ResolveFailureNone ResolveFailureKind = iota
	ResolveFailureEmptyCredential
	ResolveFailureInvalidMode
	ResolveFailureTokenExpired
	ResolveFailureTokenInvalid
	ResolveFailureLegacyInvalid
	ResolveFailureLegacyUnavailable
)

// ResolveResult carries the resolved identity or classified failure.
// TokenErr preserves the token-path error when the hybrid flow fell back to
// legacy, so audit trails can explain why the fallback happened.
type ResolveResult struct {
	Failure   ResolveFailureKind
	Err       error
	TokenErr  error
	UserID    string
	ViaLegacy bool
}

// ResolveDeps captures hybrid resolution dependencies.
type ResolveDeps struct {
	VerifyAccess   func(tokenStr string) (string, error)
	PeekSubject    func(tokenStr string) (string, bool)
	CohortIncluded func(userID string) bool
	LegacyValidate func(ctx context.Context, credential string) (string, error)
	ModeHybrid     int
	ModeTokenOnly  int
	ModeLegacyOnly int
	TokenExpired   error
	LegacyInvalid  error
	LegacyUnavail  error
}

// RunResolve executes credential resolution for the effective mode.
//
// Hybrid semantics: the token path runs only when the credential is shaped
// like an access token and its unverified subject is inside the rollout
// cohort. A credential that verifies wins outright. Any token-path failure
// falls back to the legacy validator without surfacing the token error to
// the caller; when the fallback also fails, an expired token is reported as
// expired so the caller can refresh instead of re-login.
func RunResolve(ctx context.Context, credential string, effectiveMode int, deps ResolveDeps) ResolveResult {
	if credential == "" {
		return ResolveResult{Failure: ResolveFailureEmptyCredential}
	}

	switch effectiveMode {
	case deps.ModeTokenOnly:
		return resolveToken(credential, deps)
	case deps.ModeLegacyOnly:
		return resolveLegacy(ctx, credential, nil, deps)
	case deps.ModeHybrid:
		if deps.PeekSubject != nil && deps.CohortIncluded != nil {
			// The cohort gate also acts as the kill switch: a disabled
			// rollout includes nobody, so every credential rides legacy.
			subject, ok := deps.PeekSubject(credential)
			if !ok || !deps.CohortIncluded(subject) {
				return resolveLegacy(ctx, credential, nil, deps)
			}
		}

		userID, err := deps.VerifyAccess(credential)
		if err == nil {
			return ResolveResult{UserID: userID}
		}
		return resolveLegacy(ctx, credential, err, deps)
	default:
		return ResolveResult{Failure: ResolveFailureInvalidMode}
	}
}

func resolveToken(credential string, deps ResolveDeps) ResolveResult {
	userID, err := deps.VerifyAccess(credential)
	if err == nil {
		return ResolveResult{UserID: userID}
	}
	if deps.TokenExpired != nil && errors.Is(err, deps.TokenExpired) {
		return ResolveResult{Failure: ResolveFailureTokenExpired, Err: err}
	}
	return ResolveResult{Failure: ResolveFailureTokenInvalid, Err: err}
}

func resolveLegacy(ctx context.Context, credential string, tokenErr error, deps ResolveDeps) ResolveResult {
	userID, err := deps.LegacyValidate(ctx, credential)
	if err == nil {
		return ResolveResult{UserID: userID, ViaLegacy: true, TokenErr: tokenErr}
	}
	if deps.LegacyUnavail != nil && errors.Is(err, deps.LegacyUnavail) {
		return ResolveResult{Failure: ResolveFailureLegacyUnavailable, Err: err, TokenErr: tokenErr}
	}
	if tokenErr != nil && deps.TokenExpired != nil && errors.Is(tokenErr, deps.TokenExpired) {
		// Expired beats legacy-invalid: the holder of a real, merely stale
		// token should refresh, not re-login.
		return ResolveResult{Failure: ResolveFailureTokenExpired, Err: tokenErr, TokenErr: tokenErr}
	}
	return ResolveResult{Failure: ResolveFailureLegacyInvalid, Err: err, TokenErr: tokenErr}
}
