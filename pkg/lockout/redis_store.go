package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces lockout records in a shared Redis database.
const keyPrefix = "lockout:"

// idleTTL keeps warning-state records from accumulating forever. Blocked
// records live at least their block duration on top of this.
const idleTTL = time.Hour

// incrementScript performs the read-restart-increment-block sequence as one
// atomic step on the Redis side. Two concurrent failures therefore always see
// distinct counts, and exactly one of them crosses the blocking boundary.
//
// KEYS[1] = record key
// ARGV[1] = now (unix ms), ARGV[2] = block-after threshold,
// ARGV[3] = block duration ms, ARGV[4] = record TTL ms
// Returns {attempts, blocked_until_ms}.
var incrementScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local blockAfter = tonumber(ARGV[2])
local blockForMs = tonumber(ARGV[3])
local ttlMs = tonumber(ARGV[4])

local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
local blockedUntil = tonumber(redis.call('HGET', KEYS[1], 'blocked_until') or '0')

if blockedUntil > 0 and blockedUntil <= now then
  attempts = 0
  blockedUntil = 0
end

attempts = attempts + 1
if attempts >= blockAfter then
  blockedUntil = now + blockForMs
end

redis.call('HSET', KEYS[1], 'attempts', attempts, 'blocked_until', blockedUntil)
redis.call('PEXPIRE', KEYS[1], ttlMs)
return {attempts, blockedUntil}
`)

// RedisStore implements Store on Redis, sharing lockout state across
// processes.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed store using the provided client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (rs *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	values, err := rs.client.HMGet(ctx, keyPrefix+key, "attempts", "blocked_until").Result()
	if err != nil {
		return Record{}, fmt.Errorf("lockout get %q: %w", key, err)
	}

	var rec Record
	if s, ok := values[0].(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			rec.Attempts = n
		}
	}
	if s, ok := values[1].(string); ok {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
			rec.BlockedUntil = time.UnixMilli(ms)
		}
	}
	return rec, nil
}

func (rs *RedisStore) Increment(ctx context.Context, key string, blockAfter int, blockFor time.Duration) (Record, error) {
	ttl := blockFor + idleTTL

	res, err := incrementScript.Run(ctx, rs.client, []string{keyPrefix + key},
		time.Now().UnixMilli(), blockAfter, blockFor.Milliseconds(), ttl.Milliseconds()).Slice()
	if err != nil {
		return Record{}, fmt.Errorf("lockout increment %q: %w", key, err)
	}
	if len(res) != 2 {
		return Record{}, errors.New("lockout increment: unexpected script reply")
	}

	attempts, _ := res[0].(int64)
	blockedMs, _ := res[1].(int64)

	rec := Record{Attempts: int(attempts)}
	if blockedMs > 0 {
		rec.BlockedUntil = time.UnixMilli(blockedMs)
	}
	return rec, nil
}

func (rs *RedisStore) Reset(ctx context.Context, key string) error {
	if err := rs.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("lockout reset %q: %w", key, err)
	}
	return nil
}

// SweepExpired walks the lockout keyspace and removes records whose block has
// lifted. Redis TTLs already bound the lifetime of every record, so this only
// accelerates reclamation.
func (rs *RedisStore) SweepExpired(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		count  int64
		now    = time.Now().UnixMilli()
	)

	for {
		keys, next, err := rs.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return count, fmt.Errorf("lockout sweep: %w", err)
		}

		for _, k := range keys {
			s, err := rs.client.HGet(ctx, k, "blocked_until").Result()
			if err != nil {
				continue
			}
			ms, err := strconv.ParseInt(s, 10, 64)
			if err != nil || ms == 0 || ms > now {
				continue
			}
			if rs.client.Del(ctx, k).Err() == nil {
				count++
			}
		}

		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}
