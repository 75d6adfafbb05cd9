//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/authshift/authshift/refresh"
)

// forEachRedisBackend runs fn once per reachable Redis backend, each as a
// named subtest. miniredis always runs; real backends join the matrix
// through the environment:
//
//	REDIS_ADDR            standalone instance, e.g. "127.0.0.1:6379"
//	REDIS_CLUSTER_ADDRS   comma-separated cluster node addresses
//	REDIS_SENTINEL_ADDRS  comma-separated sentinel addresses; the master
//	                      name comes from REDIS_SENTINEL_MASTER
//	                      (default "mymaster")
//
// Unreachable real backends skip rather than fail, so the suite stays
// green on machines without the full topology.
func forEachRedisBackend(t *testing.T, fn func(t *testing.T, rdb redis.UniversalClient)) {
	t.Run("miniredis", func(t *testing.T) {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis: %v", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close(); mr.Close() })
		fn(t, rdb)
	})

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		t.Run("standalone", func(t *testing.T) {
			fn(t, openRealBackend(t, redis.NewClient(&redis.Options{Addr: addr})))
		})
	}

	if addrs := envAddrList("REDIS_CLUSTER_ADDRS"); len(addrs) > 0 {
		t.Run("cluster", func(t *testing.T) {
			// No FlushDB here: it does not fan out across cluster nodes.
			rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: addrs})
			pingOrSkip(t, rdb)
			t.Cleanup(func() { _ = rdb.Close() })
			fn(t, rdb)
		})
	}

	if addrs := envAddrList("REDIS_SENTINEL_ADDRS"); len(addrs) > 0 {
		t.Run("sentinel", func(t *testing.T) {
			master := os.Getenv("REDIS_SENTINEL_MASTER")
			if master == "" {
				master = "mymaster"
			}
			rdb := redis.NewFailoverClient(&redis.FailoverOptions{
				MasterName:    master,
				SentinelAddrs: addrs,
			})
			fn(t, openRealBackend(t, rdb))
		})
	}
}

// openRealBackend verifies rdb is reachable and flushes the test database
// on both sides of the run so state never leaks between invocations.
func openRealBackend(t *testing.T, rdb redis.UniversalClient) redis.UniversalClient {
	t.Helper()
	pingOrSkip(t, rdb)
	rdb.FlushDB(context.Background())
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		_ = rdb.Close()
	})
	return rdb
}

func pingOrSkip(t *testing.T, rdb redis.UniversalClient) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis backend unreachable: %v", err)
	}
}

func envAddrList(key string) []string {
	var addrs []string
	for _, a := range strings.Split(os.Getenv(key), ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// TestRedisCompat_RefreshRotation exercises the CAS rotation script on
// every configured backend.
func TestRedisCompat_RefreshRotation(t *testing.T) {
	forEachRedisBackend(t, func(t *testing.T, rdb redis.UniversalClient) {
		store := refresh.NewRedisStore(rdb, "ash")
		ctx := context.Background()

		id := uuid.New()
		oldHash := hashByte(0x01)
		newHash := hashByte(0x02)

		if err := store.Save(ctx, makeRecord("user1", id, oldHash), time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}

		rotated, err := store.Rotate(ctx, id, oldHash, newHash)
		if err != nil {
			t.Fatalf("rotate: %v", err)
		}
		if rotated.TokenHash != newHash {
			t.Error("rotated record should carry the new token hash")
		}

		// Replay: the old hash is spent and must be rejected.
		if _, err := store.Rotate(ctx, id, oldHash, hashByte(0x03)); !errors.Is(err, refresh.ErrHashMismatch) {
			t.Errorf("expected ErrHashMismatch on replay, got %v", err)
		}
	})
}

// TestRedisCompat_DeleteIdempotent checks that Delete succeeds whether or
// not the record still exists.
func TestRedisCompat_DeleteIdempotent(t *testing.T) {
	forEachRedisBackend(t, func(t *testing.T, rdb redis.UniversalClient) {
		store := refresh.NewRedisStore(rdb, "ash")
		ctx := context.Background()

		id := uuid.New()
		if err := store.Save(ctx, makeRecord("user1", id, hashByte(0xAA)), time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}

		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("first delete: %v", err)
		}
		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("second delete should be idempotent: %v", err)
		}
	})
}

// TestRedisCompat_GetRoundTrip checks that a saved record reads back with
// the same identity fields.
func TestRedisCompat_GetRoundTrip(t *testing.T) {
	forEachRedisBackend(t, func(t *testing.T, rdb redis.UniversalClient) {
		store := refresh.NewRedisStore(rdb, "ash")
		ctx := context.Background()

		id := uuid.New()
		if err := store.Save(ctx, makeRecord("user1", id, hashByte(0xBB)), time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.UserID != "user1" {
			t.Errorf("got UserID=%q, want user1", got.UserID)
		}
		if got.ID != id {
			t.Errorf("got ID=%s, want %s", got.ID, id)
		}
	})
}

// TestRedisCompat_UserIndexCount checks the per-user record index as
// records are added and removed.
func TestRedisCompat_UserIndexCount(t *testing.T) {
	forEachRedisBackend(t, func(t *testing.T, rdb redis.UniversalClient) {
		store := refresh.NewRedisStore(rdb, "ash")
		ctx := context.Background()

		ids := make([]uuid.UUID, 3)
		for i := range ids {
			ids[i] = uuid.New()
			if err := store.Save(ctx, makeRecord("user-cnt", ids[i], hashByte(byte(i+1))), time.Hour); err != nil {
				t.Fatalf("save %d: %v", i, err)
			}
		}

		count, err := store.ActiveCount(ctx, "user-cnt")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 3 {
			t.Errorf("expected count=3, got %d", count)
		}

		if err := store.Delete(ctx, ids[0]); err != nil {
			t.Fatalf("delete: %v", err)
		}

		count, err = store.ActiveCount(ctx, "user-cnt")
		if err != nil {
			t.Fatalf("count after delete: %v", err)
		}
		if count != 2 {
			t.Errorf("expected count=2 after delete, got %d", count)
		}
	})
}

// TestRedisCompat_ReplayDetectionDeletesRecord checks that a hash mismatch
// during rotation revokes the record on every backend, not just miniredis.
func TestRedisCompat_ReplayDetectionDeletesRecord(t *testing.T) {
	forEachRedisBackend(t, func(t *testing.T, rdb redis.UniversalClient) {
		store := refresh.NewRedisStore(rdb, "ash")
		ctx := context.Background()

		id := uuid.New()
		current := hashByte(0x10)
		wrong := hashByte(0x20)

		if err := store.Save(ctx, makeRecord("user-rpl", id, current), time.Hour); err != nil {
			t.Fatalf("save: %v", err)
		}

		if _, err := store.Rotate(ctx, id, wrong, hashByte(0x30)); !errors.Is(err, refresh.ErrHashMismatch) {
			t.Fatalf("expected ErrHashMismatch, got %v", err)
		}

		// The mismatch is treated as replay; the record must be gone.
		if _, err := store.Get(ctx, id); !errors.Is(err, refresh.ErrNotFound) {
			t.Errorf("expected record revoked after replay, got err=%v", err)
		}
	})
}
