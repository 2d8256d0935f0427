package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const window = time.Minute

// RedisLimiter is a fixed one-minute window shared by every API instance.
type RedisLimiter struct {
	cli    redis.Cmdable
	limits Limits
}

func NewRedisLimiter(cli redis.Cmdable, limits Limits) *RedisLimiter {
	return &RedisLimiter{cli: cli, limits: limits}
}

// DialRedis parses url and checks the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key, action string) (bool, time.Duration, error) {
	redisKey := "ratelimit:" + action + ":" + key

	pipe := l.cli.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	ttl := pipe.PTTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("redis rate limit: %w", err)
	}

	if incr.Val() <= int64(l.limits.perMinute(action)) {
		return true, 0, nil
	}

	wait := ttl.Val()
	if wait < 0 {
		wait = window
	}
	return false, wait, nil
}
