package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	redisClient "facemark.io/infrastructure/database/connection/cache"
	"facemark.io/infrastructure/logger"
)

var Cache RedisRepository

type RedisRepository struct {
	Client *redis.Client
}

func (redisRepo *RedisRepository) preRequest() {
	if redisRepo.Client == nil {
		redisRepo.Client = redisClient.Client
		logger.Info("redis repository initialisation complete")
	}
}

func (redisRepo *RedisRepository) CreateEntry(key string, payload interface{}, ttl time.Duration) bool {
	redisRepo.preRequest()
	ctx := context.Background()
	_, err := redisRepo.Client.Set(ctx, key, payload, ttl).Result()
	if err != nil {
		logger.Error("redis error occured while running CreateEntry", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return false
	}
	return true
}

func (redisRepo *RedisRepository) FindOne(key string) *string {
	redisRepo.preRequest()
	ctx := context.Background()

	result, err := redisRepo.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		logger.Error("redis error occured while running FindOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return nil
	}
	return &result
}

func (redisRepo *RedisRepository) DeleteOne(key string) bool {
	redisRepo.preRequest()
	ctx := context.Background()

	if _, err := redisRepo.Client.Del(ctx, key).Result(); err != nil {
		logger.Error("redis error occured while running DeleteOne", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return false
	}
	return true
}

func (redisRepo *RedisRepository) PushList(key string, value string) bool {
	redisRepo.preRequest()
	ctx := context.Background()

	if _, err := redisRepo.Client.RPush(ctx, key, value).Result(); err != nil {
		logger.Error("redis error occured while running PushList", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return false
	}
	return true
}

func (redisRepo *RedisRepository) FindList(key string) []string {
	redisRepo.preRequest()
	ctx := context.Background()

	result, err := redisRepo.Client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.Error("redis error occured while running FindList", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return nil
	}
	return result
}

// ReplaceList atomically swaps the stored list for the provided entries,
// preserving their order.
func (redisRepo *RedisRepository) ReplaceList(key string, values []string) bool {
	redisRepo.preRequest()
	ctx := context.Background()

	pipe := redisRepo.Client.TxPipeline()
	pipe.Del(ctx, key)
	for _, value := range values {
		pipe.RPush(ctx, key, value)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("redis error occured while running ReplaceList", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "key",
			Data: key,
		})
		return false
	}
	return true
}
