package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const defaultTimeout = 5 * time.Second

// Config describes the Redis instance behind the user profile cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialing, every command and the startup ping. Cache calls
	// run inside store-bounded request contexts, so callers pass the store
	// timeout here.
	Timeout time.Duration
}

func (c Config) options() *redis.Options {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolTimeout:  timeout,
	}
}

// Connect opens the cache client and pings it once so a wrong address or
// password fails startup instead of the first request.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts := cfg.options()
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w: %w", cfg.Addr, domain.ErrStorage, err)
	}
	return client, nil
}
