package middleware

import (
	"context"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"placement-backend/internal/shared/telemetry"
	"placement-backend/internal/shared/util"
)

// Returns {allowed, pttl}. The window starts on the first hit of a key.
const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if current > tonumber(ARGV[2]) then
  return {0, ttl}
end
return {1, ttl}
`

// RedisLimiter is a fixed-window Limiter shared by every API instance. A rule
// allows Burst requests per Burst/Rate seconds. Redis errors fail open.
// Keys are hashed so caller ids never appear in Redis.
type RedisLimiter struct {
	client  *redis.Client
	script  *redis.Script
	prefix  string
	timeout time.Duration
}

// NewRedisLimiter returns nil when client is nil.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	if client == nil {
		return nil
	}
	return &RedisLimiter{
		client:  client,
		script:  redis.NewScript(rateLimitScript),
		prefix:  "placement:ratelimit:",
		timeout: 250 * time.Millisecond,
	}
}

func (l *RedisLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || l.client == nil {
		return true, 0
	}
	window := windowFor(rule)
	if key == "" || window <= 0 {
		return true, 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	res, err := l.script.Run(ctx, l.client, []string{l.keyFor(key)}, window.Milliseconds(), rule.Burst).Int64Slice()
	if err != nil || len(res) != 2 {
		telemetry.Warn("ratelimit.redis_unavailable", map[string]any{"key": key, "error": errString(err)})
		return true, 0
	}
	if res[0] == 1 {
		return true, 0
	}
	retry := time.Duration(res[1]) * time.Millisecond
	if retry <= 0 {
		retry = window
	}
	return false, retry
}

func (l *RedisLimiter) keyFor(key string) string {
	return l.prefix + util.HashKey(key)
}

func windowFor(rule RateLimitRule) time.Duration {
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return 0
	}
	ms := math.Ceil(float64(rule.Burst) / rule.Rate * 1000)
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

func errString(err error) string {
	if err == nil {
		return "unexpected script reply"
	}
	return err.Error()
}
