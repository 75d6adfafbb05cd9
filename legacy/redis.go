package legacy

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const minHashKeySize = 32

// RedisValidator resolves legacy session credentials against a Redis mapping
// of HMAC(credential) to user ID. Credentials are keyed by their HMAC-SHA256
// digest, so the raw session value never appears in Redis keys, values, or
// server logs that dump keyspaces.
type RedisValidator struct {
	redis   redis.UniversalClient
	hashKey []byte
	prefix  string
}

// NewRedisValidator builds a validator. The hashKey must be at least 32
// bytes; derive it from the master secret rather than reusing the signing key.
func NewRedisValidator(client redis.UniversalClient, hashKey []byte, prefix string) (*RedisValidator, error) {
	if len(hashKey) < minHashKeySize {
		return nil, fmt.Errorf("legacy hash key must be at least %d bytes, got %d", minHashKeySize, len(hashKey))
	}
	if prefix == "" {
		prefix = "ash"
	}

	key := make([]byte, len(hashKey))
	copy(key, hashKey)

	return &RedisValidator{
		redis:   client,
		hashKey: key,
		prefix:  prefix,
	}, nil
}

func (v *RedisValidator) key(credential string) string {
	mac := hmac.New(sha256.New, v.hashKey)
	mac.Write([]byte(credential))
	return v.prefix + ":ls:" + hex.EncodeToString(mac.Sum(nil))
}

// Save registers a credential for a user with the given lifetime. It exists
// for deployments that mirror the legacy session table into Redis and for
// tests; production setups may instead point the engine at a custom
// Validator that queries the legacy system directly.
func (v *RedisValidator) Save(ctx context.Context, credential, userID string, ttl time.Duration) error {
	if credential == "" {
		return errors.New("empty credential")
	}
	if userID == "" {
		return errors.New("empty userID")
	}
	if ttl <= 0 {
		return errors.New("non-positive session ttl")
	}

	if err := v.redis.Set(ctx, v.key(credential), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ValidateSession implements Validator.
func (v *RedisValidator) ValidateSession(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrSessionInvalid
	}

	userID, err := v.redis.Get(ctx, v.key(credential)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionInvalid
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if userID == "" {
		return "", ErrSessionInvalid
	}

	return userID, nil
}

// Revoke removes a credential mapping. Revoking an unknown credential is a
// no-op.
func (v *RedisValidator) Revoke(ctx context.Context, credential string) error {
	if credential == "" {
		return nil
	}
	if err := v.redis.Del(ctx, v.key(credential)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
