package sync

import (
	"encoding/json"
	"errors"

	"facemark.io/infrastructure/database/repository/cache"
	"facemark.io/infrastructure/logger"
)

const offlineQueueKey = "attendance:offline_queue"

// RedisQueue persists the offline queue as a redis list so queued events
// outlive kiosk restarts.
type RedisQueue struct{}

func NewRedisQueue() *RedisQueue {
	return &RedisQueue{}
}

func (queue *RedisQueue) Enqueue(entry QueueEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if !cache.Cache.PushList(offlineQueueKey, string(payload)) {
		return errors.New("could not persist offline queue entry")
	}
	return nil
}

func (queue *RedisQueue) Entries() ([]QueueEntry, error) {
	raw := cache.Cache.FindList(offlineQueueKey)
	entries := make([]QueueEntry, 0, len(raw))
	for _, item := range raw {
		var entry QueueEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			logger.Warning("dropping malformed offline queue entry", logger.LoggerOptions{
				Key:  "entry",
				Data: item,
			})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (queue *RedisQueue) Replace(entries []QueueEntry) error {
	serialized := make([]string, 0, len(entries))
	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		serialized = append(serialized, string(payload))
	}
	if !cache.Cache.ReplaceList(offlineQueueKey, serialized) {
		return errors.New("could not rewrite offline queue")
	}
	return nil
}
