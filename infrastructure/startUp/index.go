package startup

import (
	appsync "facemark.io/application/sync"
	"facemark.io/infrastructure/biometric"
	"facemark.io/infrastructure/database"
	"facemark.io/infrastructure/database/connection/datastore"
	"facemark.io/infrastructure/logger"
)

// Used to start services such as loggers, databases, queues, etc.
func StartServices() {
	logger.InitializeLogger()
	database.SetUpDatabase()
	biometric.InitialiseBiometricService()
	appsync.InitialiseSyncGateway()
}

// Used to clean up after services that have been shutdown.
func CleanUpServices() {
	if deep, ok := biometric.Extractor.(*biometric.DeepExtractor); ok {
		deep.Close()
	}
	datastore.CleanUp()
}
