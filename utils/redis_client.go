package utils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions sizes the pool shared by the grant store and the payment
// rate limiter.
type RedisOptions struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
}

// redisClientOptions accepts either a redis:// URL or a bare host:port.
func redisClientOptions(o RedisOptions) (*redis.Options, error) {
	var opts *redis.Options
	if strings.Contains(o.URL, "://") {
		parsed, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: o.URL}
	}

	if o.PoolSize > 0 {
		opts.PoolSize = o.PoolSize
	}
	if o.MinIdleConns > 0 {
		opts.MinIdleConns = o.MinIdleConns
	}
	if o.MaxRetries != 0 {
		opts.MaxRetries = o.MaxRetries
	}
	if o.DialTimeout > 0 {
		opts.DialTimeout = o.DialTimeout
	}
	return opts, nil
}

// NewRedisClient connects and pings once so a misconfigured URL fails at
// start-up rather than on the first grant lookup.
func NewRedisClient(o RedisOptions) (*redis.Client, error) {
	opts, err := redisClientOptions(o)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}

	slog.Info("Connected to Redis", "addr", opts.Addr, "pool_size", opts.PoolSize)
	return client, nil
}

func RedisHealthCheck(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}
