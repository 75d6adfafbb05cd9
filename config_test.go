package authshift

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/authshift/authshift/refresh"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default is valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing master secret",
			mutate:  func(c *Config) { c.Keys.MasterSecret = nil },
			wantErr: "MasterSecret",
		},
		{
			name:    "short master secret",
			mutate:  func(c *Config) { c.Keys.MasterSecret = make([]byte, 16) },
			wantErr: "MasterSecret",
		},
		{
			name:    "zero access TTL",
			mutate:  func(c *Config) { c.Token.AccessTTL = 0 },
			wantErr: "AccessTTL",
		},
		{
			name:    "negative access TTL",
			mutate:  func(c *Config) { c.Token.AccessTTL = -time.Minute },
			wantErr: "AccessTTL",
		},
		{
			name:    "asymmetric signing method rejected",
			mutate:  func(c *Config) { c.Token.SigningMethod = "rs256" },
			wantErr: "signing method",
		},
		{
			name:   "hs384 accepted",
			mutate: func(c *Config) { c.Token.SigningMethod = "hs384" },
		},
		{
			name:    "negative leeway",
			mutate:  func(c *Config) { c.Token.Leeway = -time.Second },
			wantErr: "Leeway",
		},
		{
			name:    "oversized leeway",
			mutate:  func(c *Config) { c.Token.Leeway = 3 * time.Minute },
			wantErr: "Leeway",
		},
		{
			name:   "leeway at the cap",
			mutate: func(c *Config) { c.Token.Leeway = 2 * time.Minute },
		},
		{
			name:    "negative future IAT window",
			mutate:  func(c *Config) { c.Token.MaxFutureIAT = -time.Second },
			wantErr: "MaxFutureIAT",
		},
		{
			name:    "oversized future IAT window",
			mutate:  func(c *Config) { c.Token.MaxFutureIAT = 25 * time.Hour },
			wantErr: "MaxFutureIAT",
		},
		{
			name:    "zero refresh TTL",
			mutate:  func(c *Config) { c.Refresh.TTL = 0 },
			wantErr: "Refresh TTL",
		},
		{
			name: "refresh TTL not beyond access TTL",
			mutate: func(c *Config) {
				c.Token.AccessTTL = time.Hour
				c.Refresh.TTL = time.Hour
			},
			wantErr: "exceed",
		},
		{
			name:    "throttle without attempts budget",
			mutate:  func(c *Config) { c.Refresh.Throttle.MaxAttempts = 0 },
			wantErr: "MaxAttempts",
		},
		{
			name:    "throttle without cooldown",
			mutate:  func(c *Config) { c.Refresh.Throttle.Cooldown = 0 },
			wantErr: "Cooldown",
		},
		{
			name: "disabled throttle skips throttle checks",
			mutate: func(c *Config) {
				c.Refresh.Throttle.Enabled = false
				c.Refresh.Throttle.MaxAttempts = 0
				c.Refresh.Throttle.Cooldown = 0
			},
		},
		{
			name:    "rollout percent above range",
			mutate:  func(c *Config) { c.Rollout.Percent = 101 },
			wantErr: "Percent",
		},
		{
			name:    "rollout percent below range",
			mutate:  func(c *Config) { c.Rollout.Percent = -1 },
			wantErr: "Percent",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = Mode(77) },
			wantErr: "Mode",
		},
		{
			name:   "legacy-only mode accepted",
			mutate: func(c *Config) { c.Mode = ModeLegacyOnly },
		},
		{
			name: "audit negative buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = -1
			},
			wantErr: "BufferSize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Keys.MasterSecret = []byte("too short")

	if _, err := New().WithRedis(rdb).WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected Build to reject an invalid config")
	}
}

func TestBuildRequiresBackends(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	// Nothing wired at all.
	if _, err := New().WithConfig(testConfig()).Build(); err == nil ||
		!strings.Contains(err.Error(), "redis client required") {
		t.Fatalf("expected redis client required, got %v", err)
	}

	// A store alone still leaves legacy validation unservable.
	store := refresh.NewRedisStore(rdb, "ash")
	if _, err := New().WithConfig(testConfig()).WithRefreshStore(store).Build(); err == nil ||
		!strings.Contains(err.Error(), "legacy validator") {
		t.Fatalf("expected legacy validator required, got %v", err)
	}

	// Store plus validator, but the throttle has nowhere to count.
	validator := mapValidator(map[string]string{})
	_, err := New().WithConfig(testConfig()).WithRefreshStore(store).WithLegacyValidator(validator).Build()
	if err == nil || !strings.Contains(err.Error(), "Throttle requires redis") {
		t.Fatalf("expected throttle requirement, got %v", err)
	}

	// With the throttle off, fully external wiring is fine.
	cfg := testConfig()
	cfg.Refresh.Throttle.Enabled = false
	engine, err := New().WithConfig(cfg).WithRefreshStore(store).WithLegacyValidator(validator).Build()
	if err != nil {
		t.Fatalf("external wiring should build: %v", err)
	}
	engine.Close()
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	builder := New().WithRedis(rdb).WithConfig(testConfig())
	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build on the same builder to fail")
	}
}

func TestBuildIsolatesConfigFromCaller(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	cfg := testConfig()
	engine := newTestEngine(t, rdb, cfg)
	defer engine.Close()

	// Mutations after Build must not reach the engine.
	cfg.Keys.MasterSecret[0] ^= 0xFF
	cfg.Token.AccessTTL = time.Nanosecond
	cfg.Rollout.Percent = 0

	report := engine.SecurityReport()
	if report.AccessTTL != 30*time.Minute {
		t.Fatalf("engine picked up caller mutation: AccessTTL %v", report.AccessTTL)
	}
	if report.RolloutPercent != 100 {
		t.Fatalf("engine picked up caller mutation: RolloutPercent %d", report.RolloutPercent)
	}

	pair, err := engine.Issue(ctx, "u1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := engine.Resolve(ctx, pair.AccessToken); err != nil {
		t.Fatalf("Resolve failed after caller mutation: %v", err)
	}
}

func TestSecurityReportReflectsConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Token.SigningMethod = "hs512"
	cfg.Refresh.Throttle.EnableIPThrottle = true
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	engine := newTestEngine(t, rdb, cfg)
	defer engine.Close()

	report := engine.SecurityReport()
	if report.Mode != ModeHybrid {
		t.Errorf("expected hybrid mode, got %s", report.Mode)
	}
	if report.SigningAlgorithm != "hs512" {
		t.Errorf("expected hs512, got %q", report.SigningAlgorithm)
	}
	if !report.RefreshRotationEnabled || !report.ReuseDetectionEnabled {
		t.Error("rotation and reuse detection are always on")
	}
	if !report.ThrottleActive || !report.IPThrottleActive {
		t.Errorf("throttle flags wrong: %+v", report)
	}
	if !report.AuditActive || !report.MetricsActive {
		t.Errorf("observability flags wrong: %+v", report)
	}
	if report.LatencyHistogramsActive {
		t.Error("histograms were not enabled")
	}
	if !report.LegacyFallbackActive {
		t.Error("hybrid mode keeps the legacy fallback alive")
	}

	var nilEngine *Engine
	if got := nilEngine.SecurityReport(); got != (SecurityReport{}) {
		t.Errorf("nil engine should report zero value, got %+v", got)
	}
}
