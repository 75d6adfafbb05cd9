package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/authshift/authshift"
	"github.com/authshift/authshift/coordinator"
	"github.com/authshift/authshift/legacy"
	"github.com/authshift/authshift/middleware"
	"github.com/authshift/authshift/refresh"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = authshift.New

	var _ *authshift.Engine
	var _ authshift.Config
	var _ authshift.TokenPair
	var _ authshift.Principal
	var _ authshift.LogoutReceipt
	var _ authshift.MetricsSnapshot
	var _ authshift.AuditSink = authshift.NoOpSink{}
	var _ authshift.AuditSink = (*authshift.ChannelSink)(nil)

	var _ error = authshift.ErrUnauthenticated
	var _ error = authshift.ErrTokenExpired
	var _ error = authshift.ErrTokenInvalid
	var _ error = authshift.ErrRefreshInvalid
	var _ error = authshift.ErrRefreshReuse
	var _ error = authshift.ErrRefreshRateLimited
	var _ error = authshift.ErrBackendUnavailable
	var _ error = authshift.ErrEngineNotReady

	var _ func(*authshift.Engine, authshift.Mode) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*authshift.Engine) func(http.Handler) http.Handler = middleware.RequireTokenOnly
	var _ func(*authshift.Engine) func(http.Handler) http.Handler = middleware.RequireLegacyOnly

	var _ func(*authshift.Engine, context.Context, string) (authshift.TokenPair, error) = (*authshift.Engine).Issue
	var _ func(*authshift.Engine, context.Context, string) (authshift.Principal, error) = (*authshift.Engine).Resolve
	var _ func(*authshift.Engine, context.Context, string, authshift.Mode) (authshift.Principal, error) = (*authshift.Engine).ResolveWithMode
	var _ func(*authshift.Engine, context.Context, string) (authshift.TokenPair, error) = (*authshift.Engine).Refresh
	var _ func(*authshift.Engine, context.Context, string) (authshift.LogoutReceipt, error) = (*authshift.Engine).Logout
	var _ func(*authshift.Engine, context.Context, string) (authshift.LogoutReceipt, error) = (*authshift.Engine).LogoutUser
	var _ func(*authshift.Engine, context.Context, string) (int, error) = (*authshift.Engine).ActiveRefreshCount
	var _ func(*authshift.Engine, context.Context, string) (int, error) = (*authshift.Engine).RefreshAttempts
	var _ func(*authshift.Engine, string) (int, bool) = (*authshift.Engine).CohortBucket
	var _ func(*authshift.Engine, context.Context) (bool, time.Duration) = (*authshift.Engine).Health
}

// TestStoreAndValidatorImplementationsCompile pins the pluggable backends to
// their interfaces.
func TestStoreAndValidatorImplementationsCompile(t *testing.T) {
	var _ refresh.Store = (*refresh.RedisStore)(nil)
	var _ refresh.Store = (*refresh.PostgresStore)(nil)
	var _ legacy.Validator = legacy.ValidatorFunc(nil)
	var _ legacy.Validator = (*legacy.RedisValidator)(nil)
}

// TestCoordinatorAPISurfaceCompile keeps the client-side coordinator surface
// stable for service consumers.
func TestCoordinatorAPISurfaceCompile(t *testing.T) {
	_ = coordinator.New

	var _ coordinator.Config
	var _ coordinator.Deps
	var _ *coordinator.Coordinator
	var _ coordinator.TokenPair
	var _ coordinator.Refresher = coordinator.RefresherFunc(nil)
	var _ coordinator.Refresher = (*coordinator.HTTPRefresher)(nil)
	var _ coordinator.Lock = (*coordinator.MemoryLock)(nil)
	var _ coordinator.Lock = (*coordinator.RedisLock)(nil)
	var _ coordinator.Hub = (*coordinator.MemoryHub)(nil)

	var _ error = coordinator.ErrAccessExpired
	var _ error = coordinator.ErrSessionExpired

	var _ func(*coordinator.Coordinator, context.Context, coordinator.RequestFunc) error = (*coordinator.Coordinator).Execute
	var _ func(*coordinator.Coordinator) coordinator.State = (*coordinator.Coordinator).State
	var _ func(*coordinator.Coordinator) coordinator.Stats = (*coordinator.Coordinator).Stats
}
