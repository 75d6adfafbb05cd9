package authshift

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventTokenIssued           = "token_issued"
	auditEventResolveLegacyFallback = "resolve_legacy_fallback"
	auditEventResolveDenied         = "resolve_denied"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshRateLimited    = "refresh_rate_limited"
	auditEventRefreshReuseDetected  = "refresh_reuse_detected"
	auditEventLogout                = "logout"
	auditEventLogoutAll             = "logout_all"
)

// AuditErrorCode defines a public type used by authshift APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrUnauthenticated AuditErrorCode = "unauthenticated"
	auditErrTokenExpired    AuditErrorCode = "token_expired"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrRefreshReuse    AuditErrorCode = "refresh_reuse"
	auditErrUserNotFound    AuditErrorCode = "user_not_found"
	auditErrInvalidMode     AuditErrorCode = "invalid_mode"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	recordID string,
	source string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		RecordID:  recordID,
		IP:        clientIPFromContext(ctx),
		Source:    source,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrRefreshInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrInvalidMode):
		return auditErrInvalidMode
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
