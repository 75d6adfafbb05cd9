package flows

import (
	"context"
	"time"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Resolve.VerifyAccess != nil
}

func (s Service) Resolve(ctx context.Context, credential string, effectiveMode int) ResolveResult {
	return RunResolve(ctx, credential, effectiveMode, s.deps.Resolve)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, refreshToken string) LogoutResult {
	return RunLogout(ctx, refreshToken, s.deps.Logout)
}

func (s Service) LogoutUser(ctx context.Context, userID string) error {
	return RunLogoutUser(ctx, userID, s.deps.Logout)
}

func (s Service) ActiveRefreshCount(ctx context.Context, userID string) (int, error) {
	return RunActiveRefreshCount(ctx, userID, s.deps.Introspection)
}

func (s Service) Health(ctx context.Context) (bool, time.Duration) {
	return RunHealth(ctx, s.deps.Introspection)
}

func (s Service) RefreshAttempts(ctx context.Context, recordID string) (int, error) {
	return RunRefreshAttempts(ctx, recordID, s.deps.Introspection)
}
