package attendance

import (
	"image"
	"time"

	"facemark.io/application/settings"
	"facemark.io/entities"
	"facemark.io/infrastructure/biometric/types"
)

// State names one position in the detection cycle. The machine is driven by
// a synchronous ProcessFrame call, so states exist for observability rather
// than scheduling.
type State string

const (
	StateIdle          State = "idle"
	StateDetecting     State = "detecting"
	StateLivenessCheck State = "liveness_check"
	StateRecognizing   State = "recognizing"
	StateMarking       State = "marking"
	StateSyncing       State = "syncing"
	StateSettleDelay   State = "settle_delay"
)

type TransitionKind string

const (
	TransitionSuccess             TransitionKind = "success"
	TransitionDuplicateSuppressed TransitionKind = "duplicate_suppressed"
	TransitionLivenessRejected    TransitionKind = "liveness_rejected"
	TransitionNoMatch             TransitionKind = "no_match"
	TransitionError               TransitionKind = "error"
)

// Transition is the outcome of one completed cycle, handed to the caller for
// UI rendering. Cycles that never engage (no face, busy tick) produce no
// transition at all.
type Transition struct {
	Kind       TransitionKind   `json:"kind"`
	CycleID    string           `json:"cycle_id"`
	EmployeeID *string          `json:"employee_id,omitempty"`
	LogType    *entities.LogType `json:"log_type,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Confidence float64          `json:"confidence,omitempty"`
	Reason     *string          `json:"reason,omitempty"`
	Queued     bool             `json:"queued,omitempty"`
}

// FaceDetector is the external on-device detector. A nil box with nil error
// means no face in the frame.
type FaceDetector interface {
	DetectFace(frame image.Image) (*image.Rectangle, error)
}

// EmployeeDirectory supplies the enrolled identities and their stored
// embeddings for one matching pass.
type EmployeeDirectory interface {
	AllEnrolledEmbeddings() (map[string]types.Embedding, error)
}

// AttendanceMarker owns the persisted attendance log and the re-mark window
// policy.
type AttendanceMarker interface {
	MarkAttendanceLocally(employeeID string, now time.Time, mode settings.DeviceMode, reMarkThresholdSeconds int) (*MarkResult, error)
	MarkSynced(logID string, at time.Time)
}

// MarkResult reports whether the local log accepted a new entry and, if so,
// under which log type.
type MarkResult struct {
	Accepted bool
	LogID    string
	LogType  entities.LogType
	Message  string
}

// AttendanceSyncer posts a confirmed mark to the remote system. Queued means
// the event was captured for a later flush rather than delivered.
type AttendanceSyncer interface {
	PostAttendance(employeeID string, logType *entities.LogType, timestamp time.Time) SyncOutcome
}

type SyncOutcome struct {
	Success bool
	Queued  bool
	Message string
}
