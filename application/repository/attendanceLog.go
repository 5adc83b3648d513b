package repository

import (
	"sync"

	"facemark.io/entities"
	"facemark.io/infrastructure/database/connection/datastore"
	"facemark.io/infrastructure/database/repository/mongo"
)

var attendanceLogOnce = sync.Once{}

var attendanceLogRepository mongo.MongoRepository[entities.AttendanceLog]

func AttendanceLogRepo() *mongo.MongoRepository[entities.AttendanceLog] {
	attendanceLogOnce.Do(func() {
		attendanceLogRepository = mongo.MongoRepository[entities.AttendanceLog]{Model: datastore.AttendanceLogModel}
	})
	return &attendanceLogRepository
}
