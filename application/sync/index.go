package sync

import (
	"os"

	"facemark.io/infrastructure/logger"
	"facemark.io/infrastructure/network"
)

// DefaultGateway is the process-wide gateway wired at startup.
var DefaultGateway *SyncGateway

func InitialiseSyncGateway() {
	DefaultGateway = NewSyncGateway(&network.NetworkController{
		BaseUrl: os.Getenv("REMOTE_API_URL"),
	}, NewRedisQueue())
	logger.Info("sync gateway initialised", logger.LoggerOptions{
		Key:  "remote_api",
		Data: os.Getenv("REMOTE_API_URL"),
	})
}
