package authshift

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/authshift/authshift/internal"
	"github.com/authshift/authshift/internal/flows"
	"github.com/authshift/authshift/internal/rate"
	"github.com/authshift/authshift/legacy"
	"github.com/authshift/authshift/refresh"
	"github.com/authshift/authshift/rollout"
	"github.com/authshift/authshift/token"
)

// Engine defines a public type used by authshift APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config  Config
	codec   *token.Codec
	store   refresh.Store
	legacy  legacy.Validator
	rollout *rollout.Policy
	limiter *rate.Limiter
	audit   *auditDispatcher
	metrics *Metrics
	flows   flows.Service
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) initFlows() {
	deps := flows.Deps{
		Resolve: flows.ResolveDeps{
			VerifyAccess:   e.codec.VerifyAccess,
			PeekSubject:    token.PeekSubject,
			CohortIncluded: e.rollout.Included,
			LegacyValidate: e.legacy.ValidateSession,
			ModeHybrid:     int(ModeHybrid),
			ModeTokenOnly:  int(ModeTokenOnly),
			ModeLegacyOnly: int(ModeLegacyOnly),
			TokenExpired:   token.ErrExpired,
			LegacyInvalid:  legacy.ErrSessionInvalid,
			LegacyUnavail:  legacy.ErrUnavailable,
		},
		Refresh: flows.RefreshDeps{
			ClientIPFromContext: clientIPFromContext,
			DecodeRefreshToken:  internal.DecodeRefreshToken,
			NewRefreshSecret:    internal.NewRefreshSecret,
			HashRefreshSecret:   internal.HashRefreshSecret,
			EncodeRefreshToken:  internal.EncodeRefreshToken,
			IssueAccessToken:    e.codec.IssueAccess,
			AccessLifetime:      e.codec.AccessTTL,
			Now:                 time.Now,
			RecordStore:         e.store,
			RateLimited:         rate.ErrRateLimited,
			StoreNotFound:       refresh.ErrNotFound,
			StoreExpired:        refresh.ErrExpired,
			StoreMismatch:       refresh.ErrHashMismatch,
			StoreUnavailable:    refresh.ErrUnavailable,
		},
		Logout: flows.LogoutDeps{
			DecodeRefreshToken: internal.DecodeRefreshToken,
			RecordStore:        e.store,
		},
		Introspection: flows.IntrospectionDeps{
			RecordStore:       e.store,
			EngineNotReadyErr: ErrEngineNotReady,
			UserNotFoundErr:   ErrUserNotFound,
		},
	}

	if e.limiter != nil {
		deps.Refresh.RateLimiter = e.limiter
		deps.Introspection.RateLimiter = e.limiter
	}
	if pinger, ok := e.store.(flows.IntrospectionPinger); ok {
		deps.Introspection.Pinger = pinger
	}

	e.flows = flows.New(deps)
}

// Issue describes the issue operation and its observable behavior.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Issue(ctx context.Context, userID string) (TokenPair, error) {
	if e == nil || !e.flows.Initialized() {
		return TokenPair{}, ErrEngineNotReady
	}
	if userID == "" {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssued, false, "", "", "", ErrUserNotFound, nil)
		return TokenPair{}, ErrUserNotFound
	}

	recordID, err := internal.NewRecordID()
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, "", "", err, func() map[string]string {
			return map[string]string{
				"reason": "record_id_generation",
			}
		})
		return TokenPair{}, err
	}
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, recordID.String(), "", err, func() map[string]string {
			return map[string]string{
				"reason": "refresh_secret_generation",
			}
		})
		return TokenPair{}, err
	}

	now := time.Now()
	rec := &refresh.Record{
		ID:        recordID,
		UserID:    userID,
		TokenHash: internal.HashRefreshSecret(secret),
		IPAddress: clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.Refresh.TTL).Unix(),
	}

	if err := e.store.Save(ctx, rec, e.config.Refresh.TTL); err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, recordID.String(), "", err, func() map[string]string {
			return map[string]string{
				"reason": "record_save_failed",
			}
		})
		if errors.Is(err, refresh.ErrUnavailable) {
			return TokenPair{}, ErrBackendUnavailable
		}
		return TokenPair{}, err
	}

	access, err := e.codec.IssueAccess(userID)
	if err != nil {
		// The client never saw the secret, so the saved record is unusable.
		if delErr := e.store.Delete(ctx, recordID); delErr != nil {
			log.Print("authshift: orphaned refresh record cleanup failed")
		}
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssued, false, userID, recordID.String(), "", err, func() map[string]string {
			return map[string]string{
				"reason": "issue_access_failed",
			}
		})
		return TokenPair{}, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventTokenIssued, true, userID, recordID.String(), "", nil, nil)

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     internal.EncodeRefreshToken(recordID, secret),
		AccessExpiresAt:  now.Add(e.codec.AccessTTL()).Unix(),
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// Resolve describes the resolve operation and its observable behavior.
//
// Resolve may return an error when input validation, dependency calls, or security checks fail.
// Resolve does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Resolve(ctx context.Context, credential string) (Principal, error) {
	return e.ResolveWithMode(ctx, credential, ModeInherit)
}

// ResolveWithMode describes the resolvewithmode operation and its observable behavior.
//
// ResolveWithMode may return an error when input validation, dependency calls, or security checks fail.
// ResolveWithMode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResolveWithMode(ctx context.Context, credential string, routeMode Mode) (Principal, error) {
	if e == nil || !e.flows.Initialized() {
		return Principal{}, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricResolveLatency, time.Since(start))
		}()
	}

	effectiveMode, ok := flows.ResolveRouteMode(int(routeMode), int(e.config.Mode), modeResolverConfig())
	if !ok {
		return Principal{}, ErrInvalidMode
	}

	result := e.flows.Resolve(ctx, credential, effectiveMode)
	switch result.Failure {
	case flows.ResolveFailureNone:
		if result.ViaLegacy {
			e.metricInc(MetricResolveLegacy)
			if result.TokenErr != nil {
				e.emitAudit(ctx, auditEventResolveLegacyFallback, true, result.UserID, "", SourceLegacy.String(), nil, func() map[string]string {
					return map[string]string{
						"token_error": result.TokenErr.Error(),
					}
				})
			}
			return Principal{UserID: result.UserID, Source: SourceLegacy}, nil
		}
		e.metricInc(MetricResolveToken)
		return Principal{UserID: result.UserID, Source: SourceToken}, nil
	case flows.ResolveFailureEmptyCredential:
		e.metricInc(MetricResolveDenied)
		return Principal{}, ErrUnauthenticated
	case flows.ResolveFailureInvalidMode:
		return Principal{}, ErrInvalidMode
	case flows.ResolveFailureTokenExpired:
		e.metricInc(MetricResolveExpired)
		return Principal{}, ErrTokenExpired
	case flows.ResolveFailureTokenInvalid:
		e.metricInc(MetricResolveDenied)
		e.emitAudit(ctx, auditEventResolveDenied, false, "", "", SourceToken.String(), ErrTokenInvalid, nil)
		return Principal{}, ErrTokenInvalid
	case flows.ResolveFailureLegacyInvalid:
		e.metricInc(MetricResolveDenied)
		e.emitAudit(ctx, auditEventResolveDenied, false, "", "", SourceLegacy.String(), ErrUnauthenticated, resolveDeniedMetadata(result))
		return Principal{}, ErrUnauthenticated
	case flows.ResolveFailureLegacyUnavailable:
		e.emitAudit(ctx, auditEventResolveDenied, false, "", "", SourceLegacy.String(), ErrBackendUnavailable, nil)
		return Principal{}, ErrBackendUnavailable
	default:
		e.metricInc(MetricResolveDenied)
		return Principal{}, ErrUnauthenticated
	}
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || !e.flows.Initialized() {
		return TokenPair{}, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricRefreshLatency, time.Since(start))
		}()
	}

	result := e.flows.Refresh(ctx, refreshToken)
	switch result.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, result.UserID, result.RecordID, "", nil, nil)
		return TokenPair{
			AccessToken:      result.AccessToken,
			RefreshToken:     result.RefreshToken,
			AccessExpiresAt:  result.AccessExpiresAt,
			RefreshExpiresAt: result.RefreshExpiresAt,
		}, nil
	case flows.RefreshFailureMalformed:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return TokenPair{}, ErrRefreshInvalid
	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, "", result.RecordID, "", ErrRefreshRateLimited, nil)
		return TokenPair{}, ErrRefreshRateLimited
	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseDetected)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, "", result.RecordID, "", ErrRefreshReuse, nil)
		return TokenPair{}, ErrRefreshReuse
	case flows.RefreshFailureInvalid:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", result.RecordID, "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "record_not_live",
			}
		})
		return TokenPair{}, ErrRefreshInvalid
	case flows.RefreshFailureUnavailable:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", result.RecordID, "", ErrBackendUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "backend_unavailable",
			}
		})
		return TokenPair{}, ErrBackendUnavailable
	default:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.UserID, result.RecordID, "", result.Err, func() map[string]string {
			return map[string]string{
				"reason": "rotate_failed",
			}
		})
		return TokenPair{}, result.Err
	}
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) (LogoutReceipt, error) {
	if e == nil || !e.flows.Initialized() {
		return LogoutReceipt{}, ErrEngineNotReady
	}

	result := e.flows.Logout(ctx, refreshToken)
	if !result.Decoded {
		// Garbage input still clears the cookie; logout never confirms
		// whether a presented token named a real record.
		e.emitAudit(ctx, auditEventLogout, true, "", "", "", nil, func() map[string]string {
			return map[string]string{
				"reason": "malformed_token",
			}
		})
		return LogoutReceipt{Revoked: false, ClearCookie: true}, nil
	}
	if result.Err != nil {
		e.emitAudit(ctx, auditEventLogout, false, "", result.RecordID.String(), "", result.Err, nil)
		if errors.Is(result.Err, refresh.ErrUnavailable) {
			return LogoutReceipt{ClearCookie: true}, ErrBackendUnavailable
		}
		return LogoutReceipt{ClearCookie: true}, result.Err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", result.RecordID.String(), "", nil, nil)
	return LogoutReceipt{Revoked: true, ClearCookie: true}, nil
}

// LogoutUser describes the logoutuser operation and its observable behavior.
//
// LogoutUser may return an error when input validation, dependency calls, or security checks fail.
// LogoutUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutUser(ctx context.Context, userID string) (LogoutReceipt, error) {
	if e == nil || !e.flows.Initialized() {
		return LogoutReceipt{}, ErrEngineNotReady
	}
	if userID == "" {
		return LogoutReceipt{}, ErrUserNotFound
	}

	if err := e.flows.LogoutUser(ctx, userID); err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", "", err, nil)
		if errors.Is(err, refresh.ErrUnavailable) {
			return LogoutReceipt{ClearCookie: true}, ErrBackendUnavailable
		}
		return LogoutReceipt{ClearCookie: true}, err
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, userID, "", "", nil, nil)
	return LogoutReceipt{Revoked: true, ClearCookie: true}, nil
}

// ActiveRefreshCount describes the activerefreshcount operation and its observable behavior.
//
// ActiveRefreshCount may return an error when input validation, dependency calls, or security checks fail.
// ActiveRefreshCount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ActiveRefreshCount(ctx context.Context, userID string) (int, error) {
	if e == nil || !e.flows.Initialized() {
		return 0, ErrEngineNotReady
	}
	count, err := e.flows.ActiveRefreshCount(ctx, userID)
	if err != nil {
		if errors.Is(err, refresh.ErrUnavailable) {
			return 0, ErrBackendUnavailable
		}
		return 0, err
	}
	return count, nil
}

// RefreshAttempts describes the refreshattempts operation and its observable behavior.
//
// RefreshAttempts may return an error when input validation, dependency calls, or security checks fail.
// RefreshAttempts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RefreshAttempts(ctx context.Context, recordID string) (int, error) {
	if e == nil || !e.flows.Initialized() {
		return 0, ErrEngineNotReady
	}
	if e.limiter == nil {
		return 0, nil
	}
	attempts, err := e.flows.RefreshAttempts(ctx, recordID)
	if err != nil {
		if errors.Is(err, rate.ErrUnavailable) {
			return 0, ErrBackendUnavailable
		}
		return 0, err
	}
	return attempts, nil
}

// CohortBucket describes the cohortbucket operation and its observable behavior.
//
// CohortBucket may return an error when input validation, dependency calls, or security checks fail.
// CohortBucket does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CohortBucket(userID string) (int, bool) {
	if e == nil || e.rollout == nil {
		return 0, false
	}
	return e.rollout.Bucket(userID), e.rollout.Included(userID)
}

// Health describes the health operation and its observable behavior.
//
// Health may return an error when input validation, dependency calls, or security checks fail.
// Health does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Health(ctx context.Context) (bool, time.Duration) {
	if e == nil || !e.flows.Initialized() {
		return false, 0
	}
	return e.flows.Health(ctx)
}

func modeResolverConfig() flows.ModeResolverConfig {
	return flows.ModeResolverConfig{
		ModeInherit:    int(ModeInherit),
		ModeHybrid:     int(ModeHybrid),
		ModeTokenOnly:  int(ModeTokenOnly),
		ModeLegacyOnly: int(ModeLegacyOnly),
	}
}

func resolveDeniedMetadata(result flows.ResolveResult) func() map[string]string {
	if result.TokenErr == nil {
		return nil
	}
	return func() map[string]string {
		return map[string]string{
			"token_error": result.TokenErr.Error(),
		}
	}
}
