package attendance

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"facemark.io/application/settings"
	"facemark.io/entities"
	"facemark.io/infrastructure/biometric/types"
)

type fakeDetector struct {
	box *image.Rectangle
	err error
}

func (fd *fakeDetector) DetectFace(frame image.Image) (*image.Rectangle, error) {
	return fd.box, fd.err
}

type fakeExtractor struct {
	embedding *types.Embedding
	err       error
	calls     int
}

func (fe *fakeExtractor) Extract(faceImage image.Image) (*types.Embedding, error) {
	fe.calls++
	return fe.embedding, fe.err
}

func (fe *fakeExtractor) Strategy() types.Strategy { return types.StrategyFallback }

type fakeLiveness struct {
	result *types.LivenessResult
	err    error
	calls  int
}

func (fl *fakeLiveness) Analyze(frame image.Image, faceBox image.Rectangle) (*types.LivenessResult, error) {
	fl.calls++
	return fl.result, fl.err
}

type fakeMatcher struct {
	result *types.RecognitionResult
}

func (fm *fakeMatcher) FindBestMatch(query *types.Embedding, candidates map[string]types.Embedding) *types.RecognitionResult {
	return fm.result
}

type fakeDirectory struct {
	embeddings map[string]types.Embedding
	err        error
}

func (fd *fakeDirectory) AllEnrolledEmbeddings() (map[string]types.Embedding, error) {
	return fd.embeddings, fd.err
}

type markCall struct {
	employeeID string
	mode       settings.DeviceMode
}

type fakeMarker struct {
	result      *MarkResult
	err         error
	calls       []markCall
	syncedCalls []string
}

func (fm *fakeMarker) MarkAttendanceLocally(employeeID string, now time.Time, mode settings.DeviceMode, reMarkThresholdSeconds int) (*MarkResult, error) {
	fm.calls = append(fm.calls, markCall{employeeID: employeeID, mode: mode})
	return fm.result, fm.err
}

func (fm *fakeMarker) MarkSynced(logID string, at time.Time) {
	fm.syncedCalls = append(fm.syncedCalls, logID)
}

type syncCall struct {
	employeeID string
	logType    *entities.LogType
}

type fakeSyncer struct {
	outcome SyncOutcome
	calls   []syncCall
}

func (fs *fakeSyncer) PostAttendance(employeeID string, logType *entities.LogType, timestamp time.Time) SyncOutcome {
	fs.calls = append(fs.calls, syncCall{employeeID: employeeID, logType: logType})
	return fs.outcome
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	return img
}

func matchedRecognition(employeeID string, confidence float64) *types.RecognitionResult {
	return &types.RecognitionResult{
		Match:          true,
		BestEmployeeID: &employeeID,
		Confidence:     confidence,
		ThresholdUsed:  0.55,
	}
}

func testSettings(mode settings.DeviceMode) func() (*settings.Settings, error) {
	return func() (*settings.Settings, error) {
		return &settings.Settings{
			DeviceMode:             mode,
			CooldownSeconds:        5,
			ReMarkThresholdSeconds: 60,
			LivenessEnabled:        true,
			SettleDelayMs:          0,
			TickIntervalMs:         500,
		}, nil
	}
}

type machineFixture struct {
	machine   *StateMachine
	detector  *fakeDetector
	extractor *fakeExtractor
	liveness  *fakeLiveness
	marker    *fakeMarker
	syncer    *fakeSyncer
	clock     *time.Time
}

func newMachineFixture(mode settings.DeviceMode) *machineFixture {
	box := image.Rect(10, 10, 60, 60)
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	fixture := &machineFixture{
		detector:  &fakeDetector{box: &box},
		extractor: &fakeExtractor{embedding: &types.Embedding{Vector: make([]float32, 128), Strategy: types.StrategyFallback}},
		liveness:  &fakeLiveness{result: &types.LivenessResult{IsLive: true, Confidence: 0.8}},
		marker:    &fakeMarker{result: &MarkResult{Accepted: true, LogID: "log-1", LogType: entities.LogTypeIn}},
		syncer:    &fakeSyncer{outcome: SyncOutcome{Success: true}},
		clock:     &now,
	}
	fixture.machine = NewStateMachine(
		fixture.detector,
		fixture.extractor,
		fixture.liveness,
		&fakeMatcher{result: matchedRecognition("emp-1", 0.72)},
		&fakeDirectory{embeddings: map[string]types.Embedding{}},
		fixture.marker,
		fixture.syncer,
		NewSessionState(),
	)
	fixture.machine.LoadSettings = testSettings(mode)
	fixture.machine.Clock = func() time.Time { return *fixture.clock }
	fixture.machine.Sleep = func(time.Duration) {}
	return fixture
}

func TestProcessFrameSuccess(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)

	transition := fixture.machine.ProcessFrame(context.Background(), testFrame())
	if transition == nil {
		t.Fatal("expected a transition")
	}
	if transition.Kind != TransitionSuccess {
		t.Fatalf("expected success, got %s", transition.Kind)
	}
	if *transition.EmployeeID != "emp-1" {
		t.Errorf("expected emp-1, got %s", *transition.EmployeeID)
	}
	if len(fixture.marker.calls) != 1 {
		t.Errorf("expected one local mark, got %d", len(fixture.marker.calls))
	}
	if len(fixture.syncer.calls) != 1 {
		t.Errorf("expected one sync attempt, got %d", len(fixture.syncer.calls))
	}
	if len(fixture.marker.syncedCalls) != 1 || fixture.marker.syncedCalls[0] != "log-1" {
		t.Errorf("successful sync should flag the log entry, got %v", fixture.marker.syncedCalls)
	}
}

func TestProcessFrameCooldownSuppression(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	ctx := context.Background()

	first := fixture.machine.ProcessFrame(ctx, testFrame())
	if first.Kind != TransitionSuccess {
		t.Fatalf("first cycle should succeed, got %s", first.Kind)
	}

	*fixture.clock = fixture.clock.Add(2 * time.Second)
	second := fixture.machine.ProcessFrame(ctx, testFrame())
	if second.Kind != TransitionDuplicateSuppressed {
		t.Fatalf("repeat within cooldown should be suppressed, got %s", second.Kind)
	}
	if len(fixture.marker.calls) != 1 {
		t.Errorf("suppressed cycle must not persist again, marks: %d", len(fixture.marker.calls))
	}
	if len(fixture.syncer.calls) != 1 {
		t.Errorf("suppressed cycle must not sync again, syncs: %d", len(fixture.syncer.calls))
	}

	*fixture.clock = fixture.clock.Add(4 * time.Second)
	third := fixture.machine.ProcessFrame(ctx, testFrame())
	if third.Kind != TransitionSuccess {
		t.Fatalf("cycle past the cooldown window should proceed, got %s", third.Kind)
	}
	if len(fixture.marker.calls) != 2 {
		t.Errorf("expected second local mark after cooldown, got %d", len(fixture.marker.calls))
	}
}

func TestProcessFrameReMarkRejection(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	fixture.marker.result = &MarkResult{Accepted: false, Message: "already logged IN at 09:00:00"}

	transition := fixture.machine.ProcessFrame(context.Background(), testFrame())
	if transition.Kind != TransitionDuplicateSuppressed {
		t.Fatalf("rejected local mark should suppress, got %s", transition.Kind)
	}
	if transition.Reason == nil || *transition.Reason != "already logged IN at 09:00:00" {
		t.Errorf("suppression should carry the log message, got %v", transition.Reason)
	}
	if len(fixture.syncer.calls) != 0 {
		t.Errorf("rejected mark must not reach the sync gateway, syncs: %d", len(fixture.syncer.calls))
	}
}

func TestProcessFrameSkipsWhenBusy(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	if !fixture.machine.Session.TryAcquire() {
		t.Fatal("could not take the in-flight slot for the test")
	}

	if transition := fixture.machine.ProcessFrame(context.Background(), testFrame()); transition != nil {
		t.Fatalf("busy tick must be skipped, got %s", transition.Kind)
	}
	if len(fixture.marker.calls) != 0 {
		t.Error("skipped tick must not touch the marker")
	}

	fixture.machine.Session.Release()
	if transition := fixture.machine.ProcessFrame(context.Background(), testFrame()); transition == nil {
		t.Fatal("cycle should run after the slot is released")
	}
}

func TestProcessFrameNoFaceReleasesLock(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	fixture.detector.box = nil

	if transition := fixture.machine.ProcessFrame(context.Background(), testFrame()); transition != nil {
		t.Fatalf("no-face cycle should produce no transition, got %s", transition.Kind)
	}

	box := image.Rect(10, 10, 60, 60)
	fixture.detector.box = &box
	if transition := fixture.machine.ProcessFrame(context.Background(), testFrame()); transition == nil {
		t.Fatal("lock must be released after a no-face cycle")
	}
}

func TestProcessFrameLivenessRejected(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	reason := "flat texture consistent with a printed photo reproduction"
	fixture.liveness.result = &types.LivenessResult{IsLive: false, Confidence: 0.3, FailureReason: &reason}

	transition := fixture.machine.ProcessFrame(context.Background(), testFrame())
	if transition.Kind != TransitionLivenessRejected {
		t.Fatalf("expected liveness rejection, got %s", transition.Kind)
	}
	if *transition.Reason != reason {
		t.Errorf("rejection should surface the analyzer reason, got %q", *transition.Reason)
	}
	if fixture.extractor.calls != 0 {
		t.Error("extraction must not run after a liveness rejection")
	}
}

func TestProcessFrameLivenessDisabled(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	fixture.machine.LoadSettings = func() (*settings.Settings, error) {
		loaded, _ := testSettings(settings.DeviceModeIn)()
		loaded.LivenessEnabled = false
		return loaded, nil
	}
	reason := "should never be consulted"
	fixture.liveness.result = &types.LivenessResult{IsLive: false, FailureReason: &reason}

	transition := fixture.machine.ProcessFrame(context.Background(), testFrame())
	if transition.Kind != TransitionSuccess {
		t.Fatalf("disabled liveness must not block the cycle, got %s", transition.Kind)
	}
	if fixture.liveness.calls != 0 {
		t.Errorf("analyzer ran %d times with liveness disabled", fixture.liveness.calls)
	}
}

func TestProcessFrameQueuedSync(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	fixture.syncer.outcome = SyncOutcome{Success: false, Queued: true, Message: "queued for sync"}

	transition := fixture.machine.ProcessFrame(context.Background(), testFrame())
	if transition.Kind != TransitionSuccess {
		t.Fatalf("queued sync still marks locally, got %s", transition.Kind)
	}
	if !transition.Queued {
		t.Error("transition should report the queued outcome")
	}
	if len(fixture.marker.syncedCalls) != 0 {
		t.Error("queued outcome must not flag the log entry as synced")
	}
}

func TestProcessFrameDeviceModeLogType(t *testing.T) {
	tests := []struct {
		name       string
		mode       settings.DeviceMode
		wantRemote *entities.LogType
	}{
		{name: "IN mode sends explicit type", mode: settings.DeviceModeIn, wantRemote: func() *entities.LogType { lt := entities.LogTypeIn; return &lt }()},
		{name: "BOTH mode omits explicit type", mode: settings.DeviceModeBoth, wantRemote: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newMachineFixture(tt.mode)

			transition := fixture.machine.ProcessFrame(context.Background(), testFrame())
			if transition.Kind != TransitionSuccess {
				t.Fatalf("expected success, got %s", transition.Kind)
			}
			call := fixture.syncer.calls[0]
			if tt.wantRemote == nil {
				if call.logType != nil {
					t.Errorf("BOTH mode must omit the remote log type, got %s", *call.logType)
				}
			} else if call.logType == nil || *call.logType != *tt.wantRemote {
				t.Errorf("expected remote log type %s, got %v", *tt.wantRemote, call.logType)
			}
		})
	}
}

func TestProcessFrameExtractionErrorReleasesLock(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	fixture.extractor.err = errors.New("unreadable buffer")
	fixture.extractor.embedding = nil

	transition := fixture.machine.ProcessFrame(context.Background(), testFrame())
	if transition.Kind != TransitionError {
		t.Fatalf("extraction failure should surface an error transition, got %s", transition.Kind)
	}
	if len(fixture.marker.calls) != 0 {
		t.Error("failed cycle must not persist anything")
	}

	fixture.extractor.err = nil
	fixture.extractor.embedding = &types.Embedding{Vector: make([]float32, 128), Strategy: types.StrategyFallback}
	if next := fixture.machine.ProcessFrame(context.Background(), testFrame()); next == nil || next.Kind != TransitionSuccess {
		t.Fatal("lock must be released after an error transition")
	}
}
