package authshift

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/authshift/authshift/internal"
	"github.com/authshift/authshift/internal/rate"
	"github.com/authshift/authshift/legacy"
	"github.com/authshift/authshift/refresh"
	"github.com/authshift/authshift/rollout"
	"github.com/authshift/authshift/token"
)

// Builder defines a public type used by authshift APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	store           refresh.Store
	legacyValidator legacy.Validator
	auditSink       AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithRefreshStore overrides the default Redis-backed refresh store, for
// example with [refresh.PostgresStore].
//
// WithRefreshStore may return an error when input validation, dependency calls, or security checks fail.
// WithRefreshStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.store = store
	return b
}

// WithLegacyValidator overrides the default Redis-backed legacy validator,
// for example with a [legacy.ValidatorFunc] calling the legacy system.
//
// WithLegacyValidator may return an error when input validation, dependency calls, or security checks fail.
// WithLegacyValidator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLegacyValidator(v legacy.Validator) *Builder {
	b.legacyValidator = v
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		if b.store == nil {
			return nil, errors.New("redis client required")
		}
		if b.legacyValidator == nil {
			return nil, errors.New("legacy validator required when no redis client is set")
		}
		if cfg.Refresh.Throttle.Enabled {
			return nil, errors.New("Refresh Throttle requires redis client")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- DERIVED KEYS --------
	signingKey, err := internal.DeriveKey(cfg.Keys.MasterSecret, internal.LabelAccessSigning)
	if err != nil {
		return nil, err
	}
	legacyHashKey, err := internal.DeriveKey(cfg.Keys.MasterSecret, internal.LabelLegacyHash)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN CODEC --------
	codec, err := token.NewCodec(token.Config{
		SigningKey:   signingKey,
		Method:       token.Method(cfg.Token.SigningMethod),
		AccessTTL:    cfg.Token.AccessTTL,
		Issuer:       cfg.Token.Issuer,
		Audience:     cfg.Token.Audience,
		Leeway:       cfg.Token.Leeway,
		MaxFutureIAT: cfg.Token.MaxFutureIAT,
	})
	if err != nil {
		return nil, err
	}

	// -------- REFRESH STORE --------
	store := b.store
	if store == nil {
		store = refresh.NewRedisStore(b.redis, cfg.RedisPrefix)
	}

	// -------- LEGACY VALIDATOR --------
	validator := b.legacyValidator
	if validator == nil {
		validator, err = legacy.NewRedisValidator(b.redis, legacyHashKey, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
	}

	// -------- ROLLOUT POLICY --------
	policy, err := rollout.New(cfg.Rollout.Enabled, cfg.Rollout.Percent, cfg.Rollout.Salt)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		codec:   codec,
		store:   store,
		legacy:  validator,
		rollout: policy,
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	if b.redis != nil {
		engine.limiter = rate.New(b.redis, rate.Config{
			Enabled:          cfg.Refresh.Throttle.Enabled,
			EnableIPThrottle: cfg.Refresh.Throttle.EnableIPThrottle,
			MaxAttempts:      cfg.Refresh.Throttle.MaxAttempts,
			Cooldown:         cfg.Refresh.Throttle.Cooldown,
			Prefix:           cfg.RedisPrefix,
		})
	}

	engine.initFlows()

	b.built = true

	return engine, nil
}
