package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when the caller still owns it, so
// a holder whose TTL lapsed cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is the cross-process Lock, one key per session. Acquisition is
// SET NX PX; the TTL bounds how long a crashed holder can block siblings.
type RedisLock struct {
	redis redis.UniversalClient
	key   string
}

// NewRedisLock returns a lock on the given key. Callers scope the key per
// session, for example "<prefix>:crl:<sessionID>".
func NewRedisLock(client redis.UniversalClient, key string) *RedisLock {
	return &RedisLock{
		redis: client,
		key:   key,
	}
}

// Acquire attempts SET NX PX and reports whether this owner now holds the
// slot.
func (l *RedisLock) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	ok, err := l.redis.SetNX(ctx, l.key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("refresh lock acquire: %w", err)
	}
	return ok, nil
}

// Release frees the slot if the caller still owns it.
func (l *RedisLock) Release(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, l.redis, []string{l.key}, owner).Err(); err != nil {
		return fmt.Errorf("refresh lock release: %w", err)
	}
	return nil
}
