package queue_tasks

import (
	"context"

	"facemark.io/application/sync"
	"facemark.io/infrastructure/logger"
	mq_types "facemark.io/infrastructure/message_queue/types"
	"github.com/hibiken/asynq"
)

var HandleDirectoryRefreshTaskName mq_types.Queues = "refresh_employee_directory"

// HandleDirectoryRefreshTask pulls the employee directory from the HR
// backend so enrollment changes reach the kiosk without a restart.
func HandleDirectoryRefreshTask(ctx context.Context, t *asynq.Task) error {
	if sync.DefaultGateway == nil {
		return nil
	}
	written, err := sync.DefaultGateway.RefreshDirectory()
	if err != nil {
		logger.Error("employee directory refresh failed", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return err
	}
	logger.Info("employee directory refreshed", logger.LoggerOptions{
		Key:  "records",
		Data: written,
	})
	return nil
}
