package attendance

import (
	"context"
	"fmt"
	"time"

	"facemark.io/application/repository"
	"facemark.io/application/settings"
	"facemark.io/entities"
	"facemark.io/infrastructure/database/repository/mongo"
	"facemark.io/infrastructure/logger"
)

// LocalAttendanceLog enforces the re-mark window over the persisted
// attendance log and resolves the log type for the device mode.
type LocalAttendanceLog struct{}

func NewLocalAttendanceLog() *LocalAttendanceLog {
	return &LocalAttendanceLog{}
}

// MarkAttendanceLocally rejects a new entry when the employee already has
// one inside the re-mark window for the day, otherwise persists the entry
// under the mode's log type.
func (log *LocalAttendanceLog) MarkAttendanceLocally(employeeID string, now time.Time, mode settings.DeviceMode, reMarkThresholdSeconds int) (*MarkResult, error) {
	last, err := log.lastEntryToday(employeeID, now)
	if err != nil {
		return nil, err
	}

	if last != nil && now.Sub(last.Timestamp) < time.Duration(reMarkThresholdSeconds)*time.Second {
		return &MarkResult{
			Accepted: false,
			Message:  fmt.Sprintf("already logged %s at %s", last.LogType, last.Timestamp.Format("15:04:05")),
		}, nil
	}

	logType := resolveLogType(mode, last)
	entry, err := repository.AttendanceLogRepo().CreateOne(context.Background(), entities.AttendanceLog{
		EmployeeID: employeeID,
		LogType:    logType,
		Timestamp:  now,
	})
	if err != nil {
		return nil, err
	}

	return &MarkResult{
		Accepted: true,
		LogID:    entry.ID,
		LogType:  logType,
		Message:  "attendance recorded",
	}, nil
}

func (log *LocalAttendanceLog) MarkSynced(logID string, at time.Time) {
	updated, err := repository.AttendanceLogRepo().UpdatePartialByFilter(context.Background(), map[string]interface{}{
		"_id": logID,
	}, map[string]interface{}{
		"synced":   true,
		"syncedAt": at,
	})
	if err != nil || !updated {
		logger.Warning("could not flag attendance log as synced", logger.LoggerOptions{
			Key:  "log_id",
			Data: logID,
		})
	}
}

func (log *LocalAttendanceLog) lastEntryToday(employeeID string, now time.Time) (*entities.AttendanceLog, error) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var sort interface{} = map[string]interface{}{"timestamp": -1}
	return repository.AttendanceLogRepo().FindOneByFilter(map[string]interface{}{
		"employeeID": employeeID,
		"timestamp":  map[string]interface{}{"$gte": startOfDay},
	}, mongo.FindOptions{Sort: &sort})
}

// resolveLogType implements the device-mode policy: fixed IN or OUT kiosks
// always emit their type; BOTH toggles off the day's last entry, defaulting
// to IN when there is none.
func resolveLogType(mode settings.DeviceMode, last *entities.AttendanceLog) entities.LogType {
	switch mode {
	case settings.DeviceModeIn:
		return entities.LogTypeIn
	case settings.DeviceModeOut:
		return entities.LogTypeOut
	default:
		if last != nil && last.LogType == entities.LogTypeIn {
			return entities.LogTypeOut
		}
		return entities.LogTypeIn
	}
}
