package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/finplan/config"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 3 * time.Second

// NewRedisClient connects and pings redis, retrying like the postgres client.
// Quotes and chat sessions live there, so the service does not start without it.
func NewRedisClient(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	var err error
	for attempts := defaultConnAttempts; attempts > 0; attempts-- {
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			break
		}

		slog.Info("Redis is trying to connect", slog.Int("attempts left", attempts))
		time.Sleep(connTimeout)
	}

	if err != nil {
		slog.Error("Error while connecting Redis", slog.String("error", err.Error()))
		panic(err)
	}
	slog.Info("Redis connected", slog.String("addr", rdb.Options().Addr), slog.Int("db", cfg.Redis.DB))

	return rdb
}
