//go:build integration
// +build integration

package test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/authshift/authshift"
	"github.com/authshift/authshift/legacy"
	"github.com/authshift/authshift/refresh"
)

// commandLog is a go-redis hook that records the name of every command the
// client sends. Budget failures then show exactly where the round-trips went
// instead of a bare count.
type commandLog struct {
	mu    sync.Mutex
	names []string
	pipes int
}

func (l *commandLog) DialHook(next redis.DialHook) redis.DialHook { return next }

func (l *commandLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		l.record(cmd.Name())
		return next(ctx, cmd)
	}
}

func (l *commandLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		l.mu.Lock()
		l.pipes++
		l.mu.Unlock()
		for _, cmd := range cmds {
			l.record(cmd.Name())
		}
		return next(ctx, cmds)
	}
}

func (l *commandLog) record(name string) {
	l.mu.Lock()
	l.names = append(l.names, name)
	l.mu.Unlock()
}

func (l *commandLog) Reset() {
	l.mu.Lock()
	l.names = nil
	l.pipes = 0
	l.mu.Unlock()
}

// Commands returns the names of all commands sent since the last Reset.
func (l *commandLog) Commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

func (l *commandLog) Pipelines() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pipes
}

// hookedClient starts miniredis and returns a client with a commandLog
// installed. The first use of a connection carries handshake traffic (HELLO,
// AUTH, SELECT), so it pings once and resets before handing the client out.
func hookedClient(t *testing.T) (*redis.Client, *commandLog) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := &commandLog{}
	rdb.AddHook(log)

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	log.Reset()
	return rdb, log
}

func newBudgetStore(t *testing.T) (*refresh.RedisStore, *commandLog) {
	t.Helper()
	rdb, log := hookedClient(t)
	return refresh.NewRedisStore(rdb, "ash"), log
}

// newBudgetEngine builds a hybrid engine over a hooked client. The returned
// validator lets tests seed legacy sessions.
func newBudgetEngine(t *testing.T) (*authshift.Engine, *legacy.RedisValidator, *commandLog) {
	t.Helper()
	rdb, log := hookedClient(t)

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
	t.Cleanup(engine.Close)

	return engine, validator, log
}

// TestResolveTokenPathRedisBudget verifies the core migration promise: a
// valid access token resolves without touching Redis at all.
func TestResolveTokenPathRedisBudget(t *testing.T) {
	engine, _, log := newBudgetEngine(t)
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "u-budget")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	log.Reset()

	principal, err := engine.Resolve(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if principal.Source != authshift.SourceToken {
		t.Fatalf("expected token-path principal, got %v", principal.Source)
	}

	if cmds := log.Commands(); len(cmds) != 0 {
		t.Errorf("token-path Resolve sent %d Redis commands %v; budget is 0", len(cmds), cmds)
	}
}

// TestResolveLegacyFallbackRedisBudget verifies that a legacy credential
// resolves with a single lookup (GET on the hashed session key).
func TestResolveLegacyFallbackRedisBudget(t *testing.T) {
	engine, validator, log := newBudgetEngine(t)
	ctx := context.Background()

	if err := validator.Save(ctx, "legacy-budget-cred", "u-legacy", time.Hour); err != nil {
		t.Fatalf("seed legacy session: %v", err)
	}

	log.Reset()

	principal, err := engine.Resolve(ctx, "legacy-budget-cred")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if principal.Source != authshift.SourceLegacy {
		t.Fatalf("expected legacy-path principal, got %v", principal.Source)
	}

	if cmds := log.Commands(); len(cmds) > 2 {
		t.Errorf("legacy Resolve sent %d Redis commands %v; budget is <= 2", len(cmds), cmds)
	}
	t.Logf("Resolve (legacy path): %v, %d pipelines", log.Commands(), log.Pipelines())
}

// TestEngineRefreshRedisBudget verifies that a full engine refresh stays
// within its round-trip budget: throttle INCR+EXPIRE, the rotation script,
// and the throttle reset DEL.
func TestEngineRefreshRedisBudget(t *testing.T) {
	engine, _, log := newBudgetEngine(t)
	ctx := context.Background()

	pair, err := engine.Issue(ctx, "u-budget")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	log.Reset()

	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// INCR + EXPIRE (throttle) + the rotation script + DEL (reset). The
	// script costs 2 commands on first use while go-redis falls back from
	// EVALSHA to EVAL, 1 afterwards.
	if cmds := log.Commands(); len(cmds) > 6 {
		t.Errorf("engine Refresh sent %d Redis commands %v; budget is <= 6", len(cmds), cmds)
	}
	t.Logf("engine Refresh: %v, %d pipelines", log.Commands(), log.Pipelines())
}

// TestRecordRotationRedisBudget verifies that a successful rotation is a
// single Lua script call.
func TestRecordRotationRedisBudget(t *testing.T) {
	store, log := newBudgetStore(t)
	ctx := context.Background()

	id := uuid.New()
	oldHash := hashByte(0x01)
	newHash := hashByte(0x02)
	if err := store.Save(ctx, makeRecord("u-1", id, oldHash), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	log.Reset()

	if _, err := store.Rotate(ctx, id, oldHash, newHash); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	// EVALSHA plus the one-time EVAL fallback on script-cache miss.
	if cmds := log.Commands(); len(cmds) > 2 {
		t.Errorf("Rotate sent %d Redis commands %v; budget is <= 2", len(cmds), cmds)
	}
	t.Logf("Rotate: %v, %d pipelines", log.Commands(), log.Pipelines())
}

// TestRecordSaveRedisBudget verifies that record save is one transactional
// pipeline (SET + SADD).
func TestRecordSaveRedisBudget(t *testing.T) {
	store, log := newBudgetStore(t)
	ctx := context.Background()

	log.Reset()

	if err := store.Save(ctx, makeRecord("u-2", uuid.New(), hashByte(0xCC)), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	// TxPipelined wraps SET+SADD in MULTI/EXEC and go-redis may split the
	// pipeline internally, so the ceiling is loose.
	cmds := log.Commands()
	if len(cmds) > 12 {
		t.Errorf("Save sent %d Redis commands %v; budget is <= 12", len(cmds), cmds)
	}
	t.Logf("Save: %v, %d pipelines", cmds, log.Pipelines())
}

// TestRecordDeleteRedisBudget verifies that record deletion is a single Lua
// script call covering both the record key and the user index.
func TestRecordDeleteRedisBudget(t *testing.T) {
	store, log := newBudgetStore(t)
	ctx := context.Background()

	id := uuid.New()
	if err := store.Save(ctx, makeRecord("u-3", id, hashByte(0xBB)), time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	log.Reset()

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if cmds := log.Commands(); len(cmds) > 2 {
		t.Errorf("Delete sent %d Redis commands %v; budget is <= 2", len(cmds), cmds)
	}
	t.Logf("Delete: %v, %d pipelines", log.Commands(), log.Pipelines())
}
