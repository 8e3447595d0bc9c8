package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"syriahub-gateway/middleware/ratelimit/domain"
)

// Layout das chaves (prefixo padrão "ratelimit:stats"):
//
//	{prefix}:total                    hash allowed/denied
//	{prefix}:cat:{categoria}          hash allowed/denied
//	{prefix}:ts:{categoria}:{início}  hash allowed/denied por fatia de tempo (expira)
//	{prefix}:route                    hash "{método} {categoria}:{resultado}"
//	{prefix}:key:{bucket}             hash allowed/denied (opcional, expira)
type RedisStatsConfig struct {
	Prefix string
	// TTL das séries temporais e das chaves por bucket. Totais não expiram.
	TTL time.Duration
	// Slice é a largura de cada fatia da série temporal; 0 desliga a série.
	Slice     time.Duration
	TrackKeys bool
}

// RedisStatsStore grava as decisões do gate em hashes do Redis com um único
// pipeline por evento.
type RedisStatsStore struct {
	rdb redis.Cmdable
	cfg RedisStatsConfig
}

var _ domain.StatsStore = (*RedisStatsStore)(nil)

func NewRedisStatsStore(rdb redis.Cmdable, cfg RedisStatsConfig) *RedisStatsStore {
	cfg.Prefix = strings.Trim(cfg.Prefix, ":")
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit:stats"
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}
	return &RedisStatsStore{rdb: rdb, cfg: cfg}
}

func outcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

func (s *RedisStatsStore) key(parts ...string) string {
	return s.cfg.Prefix + ":" + strings.Join(parts, ":")
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	field := outcome(ev.Allowed)
	cat := string(ev.Category)
	if cat == "" {
		cat = "none"
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.key("total"), field, 1)
	pipe.HIncrBy(ctx, s.key("cat", cat), field, 1)

	if s.cfg.Slice > 0 {
		start := at.UTC().Truncate(s.cfg.Slice).Unix()
		s.incrExpiring(ctx, pipe, s.key("ts", cat, strconv.FormatInt(start, 10)), field)
	}

	pipe.HIncrBy(ctx, s.key("route"), ev.RouteLabel()+":"+field, 1)

	if s.cfg.TrackKeys && ev.Key != "" {
		s.incrExpiring(ctx, pipe, s.key("key", string(ev.Key)), field)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats pipeline: %w", err)
	}
	return nil
}

func (s *RedisStatsStore) incrExpiring(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.cfg.TTL > 0 {
		pipe.Expire(ctx, key, s.cfg.TTL)
	}
}

// Category lê os contadores acumulados de uma categoria.
func (s *RedisStatsStore) Category(ctx context.Context, c domain.Category) (Counters, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key("cat", string(c))).Result()
	if err != nil {
		return Counters{}, fmt.Errorf("redis stats read %s: %w", c, err)
	}
	return countersFromHash(vals), nil
}

func countersFromHash(vals map[string]string) Counters {
	var c Counters
	c.Allowed, _ = strconv.ParseInt(vals["allowed"], 10, 64)
	c.Denied, _ = strconv.ParseInt(vals["denied"], 10, 64)
	return c
}
