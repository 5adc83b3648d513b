package kiosk

import (
	"errors"
	gosync "sync"

	"facemark.io/application/attendance"
	appsync "facemark.io/application/sync"
	"facemark.io/infrastructure/biometric"
	messagequeue "facemark.io/infrastructure/message_queue"
	queue_tasks "facemark.io/infrastructure/message_queue/tasks"
	mq_types "facemark.io/infrastructure/message_queue/types"
)

// The kiosk service owns the single active attendance session. Capture
// hardware is registered by the binary because frame acquisition and face
// detection are platform capabilities, not part of this module.
var (
	mutex    gosync.Mutex
	active   *attendance.Session
	frames   attendance.FrameSource
	detector attendance.FaceDetector
)

func RegisterCapture(source attendance.FrameSource, faceDetector attendance.FaceDetector) {
	mutex.Lock()
	defer mutex.Unlock()
	frames = source
	detector = faceDetector
}

// StartSession wires a fresh state machine around the registered capture
// device and starts ticking. A queue flush is scheduled immediately so events
// stranded by an offline shutdown go out as soon as the kiosk is back.
func StartSession() error {
	mutex.Lock()
	defer mutex.Unlock()

	if active != nil && active.Running() {
		return errors.New("attendance session already running")
	}
	if frames == nil || detector == nil {
		return errors.New("no capture device registered")
	}

	machine := attendance.NewStateMachine(
		detector,
		biometric.Extractor,
		biometric.Liveness,
		biometric.Matcher,
		attendance.NewMongoEmployeeDirectory(),
		attendance.NewLocalAttendanceLog(),
		appsync.DefaultGateway,
		attendance.NewSessionState(),
	)
	session := attendance.NewSession(machine, frames)
	if err := session.Start(); err != nil {
		return err
	}
	active = session

	messagequeue.TaskQueue.Enqueue(mq_types.QueueTask{
		Name:     queue_tasks.HandleQueueFlushTaskName,
		Priority: mq_types.High,
	})
	return nil
}

// StopSession cancels the session loop and waits for any in-flight cycle
// before returning, so callers can safely release the capture device.
func StopSession() error {
	mutex.Lock()
	session := active
	mutex.Unlock()

	if session == nil || !session.Running() {
		return errors.New("no attendance session running")
	}
	session.Stop()
	return nil
}

func Running() bool {
	mutex.Lock()
	defer mutex.Unlock()
	return active != nil && active.Running()
}

func LastTransition() *attendance.Transition {
	mutex.Lock()
	defer mutex.Unlock()
	if active == nil {
		return nil
	}
	return active.LastTransition()
}
