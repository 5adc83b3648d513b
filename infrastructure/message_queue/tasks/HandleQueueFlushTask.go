package queue_tasks

import (
	"context"

	"facemark.io/application/sync"
	"facemark.io/infrastructure/logger"
	mq_types "facemark.io/infrastructure/message_queue/types"
	"github.com/hibiken/asynq"
)

var HandleQueueFlushTaskName mq_types.Queues = "flush_offline_queue"

// HandleQueueFlushTask replays the offline attendance queue. Scheduled
// periodically and enqueued once on session start.
func HandleQueueFlushTask(ctx context.Context, t *asynq.Task) error {
	if sync.DefaultGateway == nil {
		return nil
	}
	delivered, err := sync.DefaultGateway.FlushQueue()
	if err != nil {
		logger.Error("scheduled offline queue flush failed", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	if delivered > 0 {
		logger.Info("scheduled offline queue flush delivered entries", logger.LoggerOptions{
			Key:  "delivered",
			Data: delivered,
		})
	}
	return nil
}
