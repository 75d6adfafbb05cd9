package authshift

import (
	"crypto/rand"
	"time"
)

/*
====================================
CONFIG PRESETS
====================================
*/

// DefaultConfig returns the baseline configuration: hybrid resolution with
// the token path fully rolled out, per-record refresh throttling, and a
// freshly generated master secret.
//
// The generated secret lives only in this process. Multi-instance
// deployments must replace it with a shared secret before Build, otherwise
// tokens minted by one instance will not verify on another.
func DefaultConfig() Config {
	cfg := defaultConfig()
	cfg.Keys.MasterSecret = mustRandomSecret()
	return cfg
}

// HighSecurityConfig returns a configuration tuned for sensitive
// deployments: short-lived access tokens signed with HS512, IP throttling on
// refresh, and lossless audit delivery.
//
// The generated-secret caveat on [DefaultConfig] applies here too.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Keys.MasterSecret = mustRandomSecret()
	cfg.Token.AccessTTL = 10 * time.Minute
	cfg.Token.SigningMethod = "hs512"
	cfg.Refresh.TTL = 7 * 24 * time.Hour
	cfg.Refresh.Throttle.EnableIPThrottle = true
	cfg.Refresh.Throttle.MaxAttempts = 10
	cfg.Refresh.Throttle.Cooldown = 5 * time.Minute
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	return cfg
}

// HighThroughputConfig returns a configuration tuned for busy APIs: longer
// access tokens to cut refresh traffic, metrics enabled for capacity
// planning, and audit kept lossy so a slow sink cannot stall resolution.
//
// The generated-secret caveat on [DefaultConfig] applies here too.
func HighThroughputConfig() Config {
	cfg := defaultConfig()
	cfg.Keys.MasterSecret = mustRandomSecret()
	cfg.Token.AccessTTL = time.Hour
	cfg.Refresh.Throttle.EnableIPThrottle = false
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = true
	cfg.Metrics.Enabled = true
	return cfg
}

func mustRandomSecret() []byte {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("authshift: reading crypto/rand: " + err.Error())
	}
	return secret
}
