package authshift

import (
	"errors"
	"time"
)

// Config defines a public type used by authshift APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Keys        KeysConfig
	Token       TokenConfig
	Refresh     RefreshConfig
	Rollout     RolloutConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	RedisPrefix string
	Mode        Mode
}

/*
====================================
KEYS CONFIG
====================================
*/

// KeysConfig defines a public type used by authshift APIs.
//
// KeysConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type KeysConfig struct {
	// MasterSecret is the single secret an integrator manages. Signing and
	// legacy-hash keys are derived from it with HKDF, so rotating it rotates
	// every derived key at once.
	MasterSecret []byte
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by authshift APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default), "hs384", "hs512"
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig defines a public type used by authshift APIs.
//
// RefreshConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshConfig struct {
	TTL      time.Duration
	Throttle ThrottleConfig
}

// ThrottleConfig defines a public type used by authshift APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

/*
====================================
ROLLOUT CONFIG
====================================
*/

// RolloutConfig defines a public type used by authshift APIs.
//
// RolloutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RolloutConfig struct {
	// Enabled is the kill switch for the token path. When false the engine
	// resolves every credential through the legacy validator, regardless of
	// Percent.
	Enabled bool
	// Percent of users (by stable hash bucket) that receive tokens at login.
	Percent int
	// Salt shuffles bucket assignment. Changing it reassigns every user, so
	// treat it as fixed once a ramp has started.
	Salt string
}

// AuditConfig defines a public type used by authshift APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authshift APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:     30 * time.Minute,
			SigningMethod: "hs256",
		},
		Refresh: RefreshConfig{
			TTL: 30 * 24 * time.Hour,
			Throttle: ThrottleConfig{
				Enabled:          true,
				EnableIPThrottle: false,
				MaxAttempts:      20,
				Cooldown:         1 * time.Minute,
			},
		},
		Rollout: RolloutConfig{
			Enabled: true,
			Percent: 100,
			Salt:    "",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		RedisPrefix: "ash",
		Mode:        ModeHybrid,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Keys.MasterSecret = cloneBytes(cfg.Keys.MasterSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Keys
	if len(c.Keys.MasterSecret) < 32 {
		return errors.New("Keys MasterSecret must be at least 32 bytes")
	}

	// Token
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	switch c.Token.SigningMethod {
	case "hs256", "hs384", "hs512":
		// valid
	default:
		return errors.New("unsupported Token signing method")
	}
	if c.Token.Leeway < 0 {
		return errors.New("Token Leeway must be >= 0")
	}
	if c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be <= 2m")
	}
	if c.Token.MaxFutureIAT < 0 {
		return errors.New("Token MaxFutureIAT must be >= 0")
	}
	if c.Token.MaxFutureIAT > 24*time.Hour {
		return errors.New("Token MaxFutureIAT must be <= 24h")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}
	if c.Refresh.TTL <= c.Token.AccessTTL {
		return errors.New("Refresh TTL must exceed Token AccessTTL")
	}
	if c.Refresh.Throttle.Enabled {
		if c.Refresh.Throttle.MaxAttempts <= 0 {
			return errors.New("Refresh Throttle MaxAttempts must be > 0")
		}
		if c.Refresh.Throttle.Cooldown <= 0 {
			return errors.New("Refresh Throttle Cooldown must be > 0")
		}
	}

	// Rollout
	if c.Rollout.Percent < 0 || c.Rollout.Percent > 100 {
		return errors.New("Rollout Percent must be between 0 and 100")
	}

	// Resolution mode
	switch c.Mode {
	case ModeHybrid, ModeTokenOnly, ModeLegacyOnly:
		// valid
	default:
		return errors.New("Mode must be hybrid, token-only, or legacy-only")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}

	return nil
}
