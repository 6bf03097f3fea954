package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript increments the window counter and stamps the expiry on first
// use, so the check and the count move together.
var allowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return {0, current, redis.call('PTTL', KEYS[1])}
end
return {1, current, redis.call('PTTL', KEYS[1])}
`)

// RedisStore implements Store with a fixed window counter shared across
// instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	raw, err := allowScript.Run(ctx, s.client, []string{"gatehouse:ratelimit:" + key},
		limit, window.Milliseconds()).Slice()
	if err != nil {
		return nil, err
	}

	allowed := raw[0].(int64) == 1
	current := int(raw[1].(int64))
	ttl := time.Duration(raw[2].(int64)) * time.Millisecond

	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}
