package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	gosync "sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	gocache "github.com/patrickmn/go-cache"

	"facemark.io/application/attendance"
	"facemark.io/application/repository"
	"facemark.io/application/settings"
	"facemark.io/entities"
	"facemark.io/infrastructure/logger"
	"facemark.io/infrastructure/network"
)

const (
	loginPath      = "/api/v1/auth/login"
	attendancePath = "/api/v1/attendance"

	remoteKeyCacheTTL = 30 * time.Minute
	tokenExpiryMargin = 30 * time.Second
)

// SyncGateway posts confirmed attendance events to the HR backend. Failed
// writes land in the offline queue; enqueue and flush share one mutex so the
// queue's read-modify-write never interleaves.
type SyncGateway struct {
	Network *network.NetworkController
	Queue   OfflineQueue

	mutex      gosync.Mutex
	token      string
	email      string
	password   string
	remoteKeys *gocache.Cache
}

func NewSyncGateway(controller *network.NetworkController, queue OfflineQueue) *SyncGateway {
	return &SyncGateway{
		Network:    controller,
		Queue:      queue,
		email:      os.Getenv("REMOTE_EMAIL"),
		password:   os.Getenv("REMOTE_PASSWORD"),
		remoteKeys: gocache.New(remoteKeyCacheTTL, 10*time.Minute),
	}
}

// PostAttendance issues the remote write for one confirmed mark. Any failure
// enqueues the event and reports Queued so the caller can render "queued for
// sync" instead of an error.
func (gateway *SyncGateway) PostAttendance(employeeID string, logType *entities.LogType, timestamp time.Time) attendance.SyncOutcome {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()

	err := gateway.post(employeeID, logType, timestamp.UTC().Format(time.RFC3339))
	if err == nil {
		return attendance.SyncOutcome{Success: true, Message: "attendance synced"}
	}

	logger.Warning("attendance write failed, queueing for later flush", logger.LoggerOptions{
		Key:  "employee_id",
		Data: employeeID,
	}, logger.LoggerOptions{
		Key:  "error",
		Data: err,
	})
	if queueErr := gateway.Queue.Enqueue(QueueEntry{
		SubjectID: employeeID,
		Timestamp: timestamp.UTC().Format(time.RFC3339),
	}); queueErr != nil {
		logger.Error("offline queue rejected entry", logger.LoggerOptions{
			Key:  "error",
			Data: queueErr,
		})
		return attendance.SyncOutcome{Success: false, Message: err.Error()}
	}
	return attendance.SyncOutcome{Success: false, Queued: true, Message: "queued for sync"}
}

// FlushQueue replays every queued entry through the normal post path. Entries
// that succeed are removed; failures keep their original order. Returns the
// number of entries delivered.
func (gateway *SyncGateway) FlushQueue() (int, error) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()

	entries, err := gateway.Queue.Entries()
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	config, err := settings.Load()
	if err != nil {
		return 0, err
	}
	logType := logTypeForMode(config.DeviceMode)

	successCount := 0
	remaining := make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		if err := gateway.post(entry.SubjectID, logType, entry.Timestamp); err != nil {
			remaining = append(remaining, entry)
			continue
		}
		successCount++
	}

	if err := gateway.Queue.Replace(remaining); err != nil {
		return successCount, err
	}
	logger.Info("offline queue flushed", logger.LoggerOptions{
		Key:  "delivered",
		Data: successCount,
	}, logger.LoggerOptions{
		Key:  "remaining",
		Data: len(remaining),
	})
	return successCount, nil
}

// post resolves the remote key and issues one authenticated write, with the
// single reauthenticate-and-retry allowed on 401/403. It never touches the
// queue; callers decide what a failure means.
func (gateway *SyncGateway) post(employeeID string, logType *entities.LogType, timestampIso string) error {
	remoteKey, err := gateway.resolveRemoteKey(employeeID)
	if err != nil {
		return err
	}

	body := map[string]interface{}{
		"employee":  remoteKey,
		"timestamp": timestampIso,
	}
	if logType != nil {
		body["logType"] = *logType
	}

	if err := gateway.ensureToken(); err != nil {
		return err
	}

	_, statusCode, err := gateway.Network.Post(attendancePath, gateway.authHeaders(), body)
	if err != nil {
		return err
	}
	if *statusCode == http.StatusUnauthorized || *statusCode == http.StatusForbidden {
		if err := gateway.authenticate(); err != nil {
			return fmt.Errorf("reauthentication failed: %w", err)
		}
		_, statusCode, err = gateway.Network.Post(attendancePath, gateway.authHeaders(), body)
		if err != nil {
			return err
		}
	}
	if *statusCode < 200 || *statusCode > 299 {
		return fmt.Errorf("attendance write rejected with status %d", *statusCode)
	}
	return nil
}

// PrimeRemoteKey seeds the remote key cache so the next write for this
// employee skips the store lookup.
func (gateway *SyncGateway) PrimeRemoteKey(employeeID string, remoteKey string) {
	gateway.remoteKeys.Set(employeeID, remoteKey, gocache.DefaultExpiration)
}

// resolveRemoteKey maps a local employee id to the identifier the HR backend
// expects, caching resolutions in memory.
func (gateway *SyncGateway) resolveRemoteKey(employeeID string) (string, error) {
	if cached, found := gateway.remoteKeys.Get(employeeID); found {
		return cached.(string), nil
	}

	employee, err := repository.EmployeeRepo().FindOneByFilter(map[string]interface{}{
		"_id": employeeID,
	})
	if err != nil {
		return "", err
	}
	if employee == nil || employee.RemoteKey == "" {
		return "", fmt.Errorf("no remote key on record for employee %s", employeeID)
	}

	gateway.remoteKeys.Set(employeeID, employee.RemoteKey, gocache.DefaultExpiration)
	return employee.RemoteKey, nil
}

// ensureToken refreshes the session token when it is missing or about to
// expire so most writes never see a 401 at all.
func (gateway *SyncGateway) ensureToken() error {
	if gateway.tokenUsable() {
		return nil
	}
	return gateway.authenticate()
}

func (gateway *SyncGateway) tokenUsable() bool {
	if gateway.token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(gateway.token, claims); err != nil {
		return false
	}
	exp, hasExp := claims["exp"].(float64)
	if !hasExp {
		return true
	}
	return time.Until(time.Unix(int64(exp), 0)) > tokenExpiryMargin
}

func (gateway *SyncGateway) authenticate() error {
	if gateway.email == "" || gateway.password == "" {
		return errors.New("remote credentials not configured")
	}

	response, statusCode, err := gateway.Network.Post(loginPath, nil, map[string]interface{}{
		"email":    gateway.email,
		"password": gateway.password,
	})
	if err != nil {
		return err
	}
	if *statusCode < 200 || *statusCode > 299 {
		return fmt.Errorf("login rejected with status %d", *statusCode)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(*response, &parsed); err != nil {
		return fmt.Errorf("unreadable login response: %w", err)
	}
	if parsed.Token == "" {
		return errors.New("login response carried no token")
	}

	gateway.token = parsed.Token
	logger.Info("remote session token refreshed")
	return nil
}

func (gateway *SyncGateway) authHeaders() *map[string]string {
	return &map[string]string{
		"Authorization": "Bearer " + gateway.token,
	}
}

// logTypeForMode mirrors the kiosk policy for replayed entries: fixed modes
// carry their type, BOTH lets the remote system infer by toggle.
func logTypeForMode(mode settings.DeviceMode) *entities.LogType {
	switch mode {
	case settings.DeviceModeIn:
		logType := entities.LogTypeIn
		return &logType
	case settings.DeviceModeOut:
		logType := entities.LogTypeOut
		return &logType
	default:
		return nil
	}
}
