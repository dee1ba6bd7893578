package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] bucket key; ARGV: refill rate per second, capacity, cost, now.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local cost = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= cost then
    tokens = tokens - cost
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, math.ceil(capacity / rate) + 1)

return {allowed, tostring(tokens)}
`)

// RedisLimiter shares token buckets between server replicas.
type RedisLimiter struct {
	client redis.UniversalClient
	rate   float64
	burst  int
}

func NewRedisLimiter(client redis.UniversalClient, rpm, burst int) *RedisLimiter {
	r := float64(rpm) / 60.0
	if r <= 0 {
		r = 1.0
	}
	if burst < 1 {
		burst = 1
	}
	return &RedisLimiter{client: client, rate: r, burst: burst}
}

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := float64(time.Now().UnixMicro()) / 1e6
	res, err := tokenBucketScript.Run(ctx, l.client, []string{"charter:ratelimit:" + key}, l.rate, l.burst, 1, now).Slice()
	if err != nil {
		return false, fmt.Errorf("redis limiter error: %w", err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("invalid response from token bucket script")
	}
	allowed, _ := res[0].(int64)
	return allowed == 1, nil
}
