package authshift

import "time"

type SecurityReport struct {
	Mode                    Mode
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	RolloutEnabled          bool
	RolloutPercent          int
	RefreshRotationEnabled  bool
	ReuseDetectionEnabled   bool
	ThrottleActive          bool
	IPThrottleActive        bool
	AuditActive             bool
	MetricsActive           bool
	LatencyHistogramsActive bool
	LegacyFallbackActive    bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	throttle := e.config.Refresh.Throttle.Enabled && e.limiter != nil

	return SecurityReport{
		Mode:             e.config.Mode,
		SigningAlgorithm: e.config.Token.SigningMethod,
		AccessTTL:        e.config.Token.AccessTTL,
		RefreshTTL:       e.config.Refresh.TTL,
		RolloutEnabled:   e.config.Rollout.Enabled,
		RolloutPercent:   e.config.Rollout.Percent,

		// Rotation and reuse detection are built into the refresh store and
		// cannot be disabled.
		RefreshRotationEnabled: true,
		ReuseDetectionEnabled:  true,

		ThrottleActive:          throttle,
		IPThrottleActive:        throttle && e.config.Refresh.Throttle.EnableIPThrottle,
		AuditActive:             e.audit != nil,
		MetricsActive:           e.config.Metrics.Enabled,
		LatencyHistogramsActive: e.config.Metrics.Enabled && e.config.Metrics.EnableLatencyHistograms,
		LegacyFallbackActive:    e.config.Mode != ModeTokenOnly && e.legacy != nil,
	}
}
