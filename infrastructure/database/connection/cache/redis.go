package cache

import (
	"context"
	"os"
	"time"

	"facemark.io/infrastructure/logger"
	"github.com/redis/go-redis/v9"
)

var (
	Client *redis.Client
)

func ConnectToCache() {
	opt := &redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
		PoolSize: 10,
	}
	Client = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Client.Ping(ctx).Err(); err != nil {
		logger.Warning("redis ping failed", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return
	}
	logger.Info("connected to redis successfully")
}
