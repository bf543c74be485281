package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisPingAttempts = 3
	redisPingTimeout  = 2 * time.Second
)

// RedisOption adjusts the parsed client options before connecting.
type RedisOption func(*redis.Options)

// WithPoolSize overrides go-redis' default of 10 per CPU. Zero keeps it.
func WithPoolSize(n int) RedisOption {
	return func(o *redis.Options) {
		if n > 0 {
			o.PoolSize = n
		}
	}
}

// NewRedis parses redisURL and pings until the server answers. Redis backs
// the job queues, rate limits and checkout guards, so startup fails without it.
func NewRedis(redisURL string, opts ...RedisOption) (*redis.Client, error) {
	o, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	// The worker pool blocks on BRPOP for up to 5s.
	if o.ReadTimeout < 6*time.Second {
		o.ReadTimeout = 6 * time.Second
	}
	for _, opt := range opts {
		opt(o)
	}

	rdb := redis.NewClient(o)
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			log.Info().Str("addr", o.Addr).Int("db", o.DB).Int("pool_size", o.PoolSize).Msg("redis connected")
			return rdb, nil
		}
		if attempt == redisPingAttempts {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis: ping %s: %w", o.Addr, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("redis not ready, retrying")
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
}
