package entities

import (
	"time"

	"facemark.io/application/utils"
)

type LogType string

const (
	LogTypeIn  LogType = "IN"
	LogTypeOut LogType = "OUT"
)

// AttendanceLog is one accepted attendance mark. Synced flips once the
// remote write (or a later queue flush) succeeds.
type AttendanceLog struct {
	EmployeeID string     `bson:"employeeID" json:"employeeID"`
	LogType    LogType    `bson:"logType" json:"logType"`
	Timestamp  time.Time  `bson:"timestamp" json:"timestamp"`
	Synced     bool       `bson:"synced" json:"synced"`
	SyncedAt   *time.Time `bson:"syncedAt" json:"syncedAt"`

	ID        string    `bson:"_id" json:"id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (model AttendanceLog) ParseModel() any {
	now := time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
		if model.ID == "" {
			model.ID = utils.GenerateULIDString()
		}
	}
	model.UpdatedAt = now
	return &model
}
