package flows

import (
	"context"
	"time"
)

type IntrospectionRecordStore interface {
	ActiveCount(ctx context.Context, userID string) (int, error)
}

type IntrospectionPinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

type IntrospectionRateLimiter interface {
	Attempts(ctx context.Context, recordID string) (int, error)
}

type IntrospectionDeps struct {
	RecordStore       IntrospectionRecordStore
	Pinger            IntrospectionPinger
	RateLimiter       IntrospectionRateLimiter
	EngineNotReadyErr error
	UserNotFoundErr   error
}

func RunActiveRefreshCount(ctx context.Context, userID string, deps IntrospectionDeps) (int, error) {
	if deps.RecordStore == nil {
		return 0, deps.EngineNotReadyErr
	}
	if userID == "" {
		return 0, deps.UserNotFoundErr
	}
	return deps.RecordStore.ActiveCount(ctx, userID)
}

func RunHealth(ctx context.Context, deps IntrospectionDeps) (bool, time.Duration) {
	if deps.Pinger == nil {
		return false, 0
	}
	latency, err := deps.Pinger.Ping(ctx)
	return err == nil, latency
}

func RunRefreshAttempts(ctx context.Context, recordID string, deps IntrospectionDeps) (int, error) {
	if deps.RateLimiter == nil {
		return 0, deps.EngineNotReadyErr
	}
	if recordID == "" {
		return 0, nil
	}
	return deps.RateLimiter.Attempts(ctx, recordID)
}
