package capacity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gatehouse/internal/visitor/models"
)

// reserveScript performs the compare-and-increment server-side so the check
// and the increment are one atomic step even across multiple instances.
// Returns the new count on success, or -(current count)-1 when the ceiling
// would be exceeded.
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local count = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
if current + count > cap then
  return -current - 1
end
return redis.call('INCRBY', KEYS[1], count)
`)

// releaseScript decrements floored at zero.
var releaseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local count = tonumber(ARGV[1])
if count >= current then
  redis.call('SET', KEYS[1], '0')
  return 0
end
return redis.call('DECRBY', KEYS[1], count)
`)

// RedisLedger shares bucket counts across instances through Redis. Intended
// for multi-replica deployments where the in-memory ledger cannot arbitrate.
type RedisLedger struct {
	client   *redis.Client
	capacity int
}

func NewRedisLedger(client *redis.Client, capacity int) *RedisLedger {
	if capacity <= 0 {
		capacity = DefaultCapacityPerBucket
	}
	return &RedisLedger{client: client, capacity: capacity}
}

func (l *RedisLedger) TryReserve(ctx context.Context, date models.Date, hour, count int) (Result, error) {
	key := BucketKey(date, hour)
	val, err := reserveScript.Run(ctx, l.client, []string{key}, count, l.capacity).Int()
	if err != nil {
		return Result{}, fmt.Errorf("redis reserve %s: %w", key, err)
	}
	if val < 0 {
		current := -val - 1
		remaining := l.capacity - current
		reason := fullyBookedReason(hour, current, l.capacity)
		if count > 1 {
			reason = insufficientReason(hour, count, remaining)
		}
		return Result{Allowed: false, Remaining: remaining, Reason: reason}, nil
	}
	return Result{Allowed: true, Remaining: l.capacity - val}, nil
}

func (l *RedisLedger) Release(ctx context.Context, date models.Date, hour, count int) error {
	key := BucketKey(date, hour)
	if err := releaseScript.Run(ctx, l.client, []string{key}, count).Err(); err != nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}

func (l *RedisLedger) CurrentCount(ctx context.Context, date models.Date, hour int) (int, error) {
	val, err := l.client.Get(ctx, BucketKey(date, hour)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis count %s: %w", BucketKey(date, hour), err)
	}
	return val, nil
}
