package asynq

import (
	"os"
	"time"

	"facemark.io/infrastructure/logger"
	queue_tasks "facemark.io/infrastructure/message_queue/tasks"
	mq_types "facemark.io/infrastructure/message_queue/types"
	"github.com/hibiken/asynq"
)

type AsynqBroker struct {
	Client *asynq.Client
}

func (aq *AsynqBroker) Start() {
	redisConnOpt := asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}

	aq.Client = asynq.NewClient(redisConnOpt)

	srv := asynq.NewServer(
		redisConnOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				string(mq_types.High):   7,
				string(mq_types.Medium): 2,
				string(mq_types.Low):    1,
			},
		},
	)

	scheduler := asynq.NewScheduler(redisConnOpt, nil)
	if _, err := scheduler.Register("@every 5m", asynq.NewTask(string(queue_tasks.HandleQueueFlushTaskName), nil), asynq.Queue(string(mq_types.Medium))); err != nil {
		logger.Error("could not schedule offline queue flush", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
	if _, err := scheduler.Register("@every 15m", asynq.NewTask(string(queue_tasks.HandleDirectoryRefreshTaskName), nil), asynq.Queue(string(mq_types.Low))); err != nil {
		logger.Error("could not schedule directory refresh", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("task scheduler stopped", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
		}
	}()

	mux := asynq.NewServeMux()
	mux.HandleFunc(string(queue_tasks.HandleQueueFlushTaskName), queue_tasks.HandleQueueFlushTask)
	mux.HandleFunc(string(queue_tasks.HandleDirectoryRefreshTaskName), queue_tasks.HandleDirectoryRefreshTask)

	srv.Run(mux)
}

func (aq *AsynqBroker) Enqueue(task mq_types.QueueTask) {
	if task.TimeOut == 0 {
		task.TimeOut = 60
	}
	aq.Client.Enqueue(asynq.NewTask(string(task.Name), task.Payload),
		asynq.ProcessIn(time.Duration(task.ProcessIn)*time.Second),
		asynq.MaxRetry(task.MaxRetry),
		asynq.Timeout(time.Second*time.Duration(task.TimeOut)),
		asynq.Queue(string(task.Priority)))
}
