package coordinator

import "errors"

// ErrAccessExpired is the signal a request function returns when the server
// rejected its access token as expired. It is the only error that triggers a
// refresh cycle; any other error passes through Execute untouched.
var ErrAccessExpired = errors.New("access token expired")

// ErrSessionExpired reports that the session is gone for good: the refresh
// endpoint rejected the refresh token, or the retry budget ran out. The only
// way forward is a full re-login.
var ErrSessionExpired = errors.New("session expired")

// Refresh endpoint error codes that terminate the session.
const (
	CodeInvalidRefreshToken = "invalid_refresh_token"
	CodeSessionRevoked      = "session_revoked"
	CodeUnauthenticated     = "unauthenticated"
)

// AuthError is a refresh rejection carrying the endpoint's machine-readable
// error code. Auth failures are terminal and are never retried.
type AuthError struct {
	Code string
}

func (e *AuthError) Error() string {
	return "refresh rejected: " + e.Code
}

// IsAuthFailure reports whether err is a terminal refresh rejection as
// opposed to a transient transport problem.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
