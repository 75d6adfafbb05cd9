//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/authshift/authshift"
	"github.com/authshift/authshift/legacy"
	"github.com/authshift/authshift/refresh"
)

func newIntegrationStore(t *testing.T) (*refresh.RedisStore, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := refresh.NewRedisStore(rdb, "ash")

	return store, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

// newIntegrationEngine builds a hybrid engine against miniredis. The returned
// validator shares the engine's Redis instance so tests can seed legacy
// sessions with Save.
func newIntegrationEngine(t *testing.T) (*authshift.Engine, *legacy.RedisValidator, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	validator, err := legacy.NewRedisValidator(rdb, testHashKey(), "ash")
	if err != nil {
		t.Fatalf("NewRedisValidator failed: %v", err)
	}

	engine, err := authshift.New().
		WithRedis(rdb).
		WithConfig(authshift.DefaultConfig()).
		WithLegacyValidator(validator).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return engine, validator, rdb, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func makeRecord(userID string, id uuid.UUID, tokenHash [32]byte) *refresh.Record {
	now := time.Now()

	return &refresh.Record{
		ID:        id,
		UserID:    userID,
		TokenHash: tokenHash,
		IPAddress: "203.0.113.7",
		UserAgent: "integration/1.0",
		CreatedAt: now.Unix(),
		UpdatedAt: now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
}

func hashByte(b byte) [32]byte {
	var out [32]byte
	for i := 0; i < len(out); i++ {
		out[i] = b
	}
	return out
}

func testHashKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}
