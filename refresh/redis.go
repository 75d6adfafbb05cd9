package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	rotateStatusNotFound    int64 = 0
	rotateStatusExpired     int64 = 1
	rotateStatusMismatch    int64 = 2
	rotateStatusRotated     int64 = 3
	rotateStatusInvalidBlob int64 = 4
)

// Blob layout is fixed per format version (see record.go), so the script can
// patch the hash and updated-at fields without a Lua-side decoder. Offsets
// here are 1-based Lua string indices.
const rotateRefreshScript = `
local function read_be64(s, i)
  local b1 = string.byte(s, i)
  local b2 = string.byte(s, i + 1)
  local b3 = string.byte(s, i + 2)
  local b4 = string.byte(s, i + 3)
  local b5 = string.byte(s, i + 4)
  local b6 = string.byte(s, i + 5)
  local b7 = string.byte(s, i + 6)
  local b8 = string.byte(s, i + 7)
  if not b8 then
    return nil
  end
  return ((((((((b1 * 256) + b2) * 256 + b3) * 256 + b4) * 256 + b5) * 256 + b6) * 256 + b7) * 256 + b8)
end

local function write_be64(n)
  local out = {}
  for i = 8, 1, -1 do
    out[i] = string.char(n % 256)
    n = math.floor(n / 256)
  end
  return table.concat(out)
end

local record_key = KEYS[1]
local record_id = ARGV[1]
local user_prefix = ARGV[2]
local provided_hash = ARGV[3]
local next_hash = ARGV[4]
local now_unix = tonumber(ARGV[5])

local data = redis.call("GET", record_key)
if not data then
  return {0}
end

if #data < 62 or string.byte(data, 1) ~= 1 then
  return {4}
end

local uid_len = string.byte(data, 58)
if not uid_len or uid_len == 0 or #data < 58 + uid_len then
  return {4}
end
local user_id = string.sub(data, 59, 58 + uid_len)
local user_key = user_prefix .. user_id

local expires_at = read_be64(data, 34)
if not expires_at or expires_at <= now_unix then
  redis.call("DEL", record_key)
  redis.call("SREM", user_key, record_id)
  return {1}
end

local stored_hash = string.sub(data, 2, 33)
if stored_hash ~= provided_hash then
  redis.call("DEL", record_key)
  redis.call("SREM", user_key, record_id)
  return {2}
end

local ttl = redis.call("PTTL", record_key)
if ttl <= 0 then
  redis.call("DEL", record_key)
  redis.call("SREM", user_key, record_id)
  return {1}
end

local updated = string.sub(data, 1, 1) .. next_hash .. string.sub(data, 34, 49) .. write_be64(now_unix) .. string.sub(data, 58)
redis.call("SET", record_key, updated, "PX", ttl)

return {3, updated}
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

const deleteRecordScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end

local uid_len = string.byte(data, 58)
if uid_len and uid_len > 0 and #data >= 58 + uid_len then
  local user_id = string.sub(data, 59, 58 + uid_len)
  redis.call("SREM", ARGV[2] .. user_id, ARGV[1])
end

redis.call("DEL", KEYS[1])
return 1
`

var deleteRecordLua = redis.NewScript(deleteRecordScript)

// RedisStore keeps refresh records as versioned binary blobs under a TTL
// matching their expiry, with a per-user index set for bulk revocation.
// Rotation is a Lua compare-and-swap preserving the remaining TTL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore] with the given key namespace prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ash"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(id uuid.UUID) string {
	return s.prefix + ":rt:" + id.String()
}

func (s *RedisStore) userPrefix() string {
	return s.prefix + ":u:"
}

func (s *RedisStore) userKey(userID string) string {
	return s.userPrefix() + userID
}

// Save persists a fresh record. The Redis TTL mirrors the record expiry so
// storage self-cleans even without explicit revocation.
func (s *RedisStore) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("non-positive record ttl")
	}

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	recordKey := s.key(rec.ID)
	userKey := s.userKey(rec.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey, data, ttl)
		pipe.SAdd(ctx, userKey, rec.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// Get fetches and decodes a record. Records found past their expiry are
// deleted and reported as ErrExpired.
func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	rec.ID = id

	if rec.Expired(time.Now().Unix()) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	return rec, nil
}

// Rotate runs the CAS script. Exactly one concurrent caller presenting the
// stored hash wins; every loser observes ErrHashMismatch and the record is
// revoked on mismatch so a replayed old secret cannot retry forever.
func (s *RedisStore) Rotate(ctx context.Context, id uuid.UUID, providedHash, nextHash [32]byte) (*Record, error) {
	result, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.key(id)},
		id.String(),
		s.userPrefix(),
		providedHash[:],
		nextHash[:],
		time.Now().Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrUnavailable)
	}

	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrNotFound
	case rotateStatusExpired:
		return nil, ErrExpired
	case rotateStatusMismatch:
		return nil, ErrHashMismatch
	case rotateStatusRotated:
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: missing rotated record payload", ErrUnavailable)
		}

		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return nil, fmt.Errorf("%w: invalid rotated record payload", ErrUnavailable)
		}

		rec, decErr := Decode(blob)
		if decErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, decErr)
		}
		rec.ID = id
		return rec, nil
	case rotateStatusInvalidBlob:
		return nil, fmt.Errorf("%w: undecodable stored blob", ErrCorrupt)
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status", ErrUnavailable)
	}
}

// Delete removes a record and its user-index entry. Missing records are a no-op.
func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := deleteRecordLua.Run(ctx, s.redis, []string{s.key(id)}, id.String(), s.userPrefix()).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every tracked record for a user.
func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	recordKeys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			continue
		}
		recordKeys = append(recordKeys, s.key(id))
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(recordKeys) > 0 {
			pipe.Del(ctx, recordKeys...)
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// ActiveCount returns the tracked record count for a user. Records that
// self-expired but were never touched again may be counted until the next
// rotation or revocation cleans the index.
func (s *RedisStore) ActiveCount(ctx context.Context, userID string) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
