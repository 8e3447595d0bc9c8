package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// fixedWindowScript incrementa o contador e, na primeira requisição da janela,
// define a expiração. Retorna {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if count == 1 or ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisCounter é um domain.WindowCounter compartilhado entre instâncias.
//
// O Redis faz a expiração das janelas, então não há Sweep.
type RedisCounter struct {
	rdb    redis.Scripter
	prefix string
}

var _ domain.WindowCounter = (*RedisCounter)(nil)

type RedisCounterOption func(*RedisCounter)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(c *RedisCounter) { c.prefix = strings.Trim(prefix, ":") }
}

func NewRedisCounter(rdb redis.Scripter, opts ...RedisCounterOption) *RedisCounter {
	c := &RedisCounter{rdb: rdb, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCounter) redisKey(key domain.Key) string {
	if c.prefix == "" {
		return string(key)
	}
	return c.prefix + ":" + string(key)
}

func (c *RedisCounter) Hit(ctx context.Context, key domain.Key, window time.Duration, now time.Time) (domain.Entry, error) {
	res, err := fixedWindowScript.Run(ctx, c.rdb, []string{c.redisKey(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return domain.Entry{}, fmt.Errorf("redis fixed window: %w", err)
	}
	if len(res) != 2 {
		return domain.Entry{}, fmt.Errorf("redis fixed window: unexpected reply %v", res)
	}

	return domain.Entry{
		Count:   int(res[0]),
		ResetAt: now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}
