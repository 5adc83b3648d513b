package attendance

import (
	"context"
	"image"
	"time"

	"facemark.io/application/settings"
	"facemark.io/application/utils"
	"facemark.io/entities"
	"facemark.io/infrastructure/biometric"
	"facemark.io/infrastructure/biometric/types"
	"facemark.io/infrastructure/logger"
)

const faceCropPadding = 0.10

// StateMachine drives one full detection cycle per frame. All collaborators
// are injected so the pipeline can be exercised with fakes.
type StateMachine struct {
	Detector  FaceDetector
	Extractor types.EmbeddingExtractor
	Liveness  types.LivenessAnalyzerType
	Matcher   types.IdentityMatcherType
	Directory EmployeeDirectory
	Marker    AttendanceMarker
	Syncer    AttendanceSyncer
	Session   *SessionState

	LoadSettings func() (*settings.Settings, error)
	Clock        func() time.Time
	Sleep        func(time.Duration)
}

func NewStateMachine(detector FaceDetector, extractor types.EmbeddingExtractor, liveness types.LivenessAnalyzerType, matcher types.IdentityMatcherType, directory EmployeeDirectory, marker AttendanceMarker, syncer AttendanceSyncer, session *SessionState) *StateMachine {
	return &StateMachine{
		Detector:     detector,
		Extractor:    extractor,
		Liveness:     liveness,
		Matcher:      matcher,
		Directory:    directory,
		Marker:       marker,
		Syncer:       syncer,
		Session:      session,
		LoadSettings: settings.Load,
		Clock:        time.Now,
		Sleep:        time.Sleep,
	}
}

// ProcessFrame runs one cycle against a captured frame. A nil transition
// means the cycle never engaged: no face in the frame, or another cycle was
// still holding the in-flight slot. The slot is released on every exit path,
// after the settle delay when a transition was produced.
func (machine *StateMachine) ProcessFrame(ctx context.Context, frame image.Image) (transition *Transition) {
	config, err := machine.LoadSettings()
	if err != nil {
		logger.Error("detection cycle aborted on invalid settings", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil
	}

	if !machine.Session.TryAcquire() {
		return nil
	}
	cycleID := utils.GenerateULIDString()

	defer func() {
		if transition != nil && config.SettleDelayMs > 0 {
			machine.Session.SetState(StateSettleDelay)
			machine.Sleep(time.Duration(config.SettleDelayMs) * time.Millisecond)
		}
		machine.Session.Release()
	}()

	machine.Session.SetState(StateDetecting)
	box, err := machine.Detector.DetectFace(frame)
	if err != nil {
		return machine.errorTransition(cycleID, err)
	}
	if box == nil {
		return nil
	}

	if ctx.Err() != nil {
		return nil
	}

	if config.LivenessEnabled {
		machine.Session.SetState(StateLivenessCheck)
		liveness, err := machine.Liveness.Analyze(frame, *box)
		if err != nil {
			return machine.errorTransition(cycleID, err)
		}
		if !liveness.IsLive {
			return &Transition{
				Kind:       TransitionLivenessRejected,
				CycleID:    cycleID,
				Timestamp:  machine.Clock(),
				Confidence: liveness.Confidence,
				Reason:     liveness.FailureReason,
			}
		}
	}

	machine.Session.SetState(StateRecognizing)
	face := biometric.CropFaceRegion(frame, *box, faceCropPadding)
	if face == nil {
		return machine.errorTransition(cycleID, types.ErrExtraction)
	}
	embedding, err := machine.Extractor.Extract(face)
	if err != nil {
		return machine.errorTransition(cycleID, err)
	}

	candidates, err := machine.Directory.AllEnrolledEmbeddings()
	if err != nil {
		return machine.errorTransition(cycleID, err)
	}

	recognition := machine.Matcher.FindBestMatch(embedding, candidates)
	if !recognition.Match {
		return &Transition{
			Kind:       TransitionNoMatch,
			CycleID:    cycleID,
			Timestamp:  machine.Clock(),
			Confidence: recognition.Confidence,
			Reason:     recognition.FailureReason,
		}
	}

	employeeID := *recognition.BestEmployeeID
	now := machine.Clock()

	if machine.Session.InCooldown(employeeID, now, time.Duration(config.CooldownSeconds)*time.Second) {
		return &Transition{
			Kind:       TransitionDuplicateSuppressed,
			CycleID:    cycleID,
			EmployeeID: &employeeID,
			Timestamp:  now,
			Confidence: recognition.Confidence,
			Reason:     utils.GetStringPointer("recognized again within the cooldown window"),
		}
	}

	machine.Session.SetState(StateMarking)
	mark, err := machine.Marker.MarkAttendanceLocally(employeeID, now, config.DeviceMode, config.ReMarkThresholdSeconds)
	if err != nil {
		return machine.errorTransition(cycleID, err)
	}
	if !mark.Accepted {
		machine.Session.RememberProcessed(employeeID, now)
		return &Transition{
			Kind:       TransitionDuplicateSuppressed,
			CycleID:    cycleID,
			EmployeeID: &employeeID,
			Timestamp:  now,
			Confidence: recognition.Confidence,
			Reason:     &mark.Message,
		}
	}
	machine.Session.RememberProcessed(employeeID, now)

	machine.Session.SetState(StateSyncing)
	var remoteLogType *entities.LogType
	if config.DeviceMode != settings.DeviceModeBoth {
		logType := mark.LogType
		remoteLogType = &logType
	}
	outcome := machine.Syncer.PostAttendance(employeeID, remoteLogType, now)
	if outcome.Success {
		machine.Marker.MarkSynced(mark.LogID, machine.Clock())
	}

	logType := mark.LogType
	return &Transition{
		Kind:       TransitionSuccess,
		CycleID:    cycleID,
		EmployeeID: &employeeID,
		LogType:    &logType,
		Timestamp:  now,
		Confidence: recognition.Confidence,
		Queued:     outcome.Queued,
	}
}

func (machine *StateMachine) errorTransition(cycleID string, err error) *Transition {
	logger.Error("detection cycle failed", logger.LoggerOptions{
		Key:  "cycle_id",
		Data: cycleID,
	}, logger.LoggerOptions{
		Key:  "error",
		Data: err,
	})
	return &Transition{
		Kind:      TransitionError,
		CycleID:   cycleID,
		Timestamp: machine.Clock(),
		Reason:    utils.GetStringPointer(err.Error()),
	}
}
