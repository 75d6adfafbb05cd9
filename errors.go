package authshift

import "errors"

var (
	// ErrUnauthenticated is an exported constant or variable used by the authentication engine.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid is an exported constant or variable used by the authentication engine.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is an exported constant or variable used by the authentication engine.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrRefreshRateLimited is an exported constant or variable used by the authentication engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrBackendUnavailable is an exported constant or variable used by the authentication engine.
	ErrBackendUnavailable = errors.New("auth backend unavailable")
	// ErrInvalidMode is an exported constant or variable used by the authentication engine.
	ErrInvalidMode = errors.New("invalid resolution mode")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
