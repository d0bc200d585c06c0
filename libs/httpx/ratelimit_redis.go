package httpx

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter for the current window and starts its expiry on
// the first hit, atomically so replicas never leave a counter without a TTL.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisRateLimiter shares one fixed-window budget per client across every replica.
type RedisRateLimiter struct {
	rdb    redis.Scripter
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	l, w := normalizeBudget(limit, window)
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "rl:"
	}
	return &RedisRateLimiter{rdb: rdb, limit: int64(l), window: w, prefix: prefix}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := fixedWindow.Run(ctx, rl.rdb, []string{rl.prefix + key}, rl.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= rl.limit, nil
}
