package attendance

import (
	"image"
	"testing"
	"time"

	"facemark.io/application/settings"
	"facemark.io/entities"
)

type staticFrameSource struct {
	frame image.Image
}

func (sfs *staticFrameSource) NextFrame() (image.Image, error) {
	return sfs.frame, nil
}

func fastSettings(fixture *machineFixture) {
	fixture.machine.LoadSettings = func() (*settings.Settings, error) {
		loaded, _ := testSettings(settings.DeviceModeIn)()
		loaded.TickIntervalMs = 100
		return loaded, nil
	}
}

func TestSessionLoopProducesTransitions(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	fastSettings(fixture)
	session := NewSession(fixture.machine, &staticFrameSource{frame: testFrame()})

	if err := session.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	if err := session.Start(); err == nil {
		t.Error("double start should be rejected")
	}

	deadline := time.After(2 * time.Second)
	for session.LastTransition() == nil {
		select {
		case <-deadline:
			t.Fatal("no transition observed before the deadline")
		case <-time.After(20 * time.Millisecond):
		}
	}

	session.Stop()
	if session.Running() {
		t.Error("session should report stopped after Stop returns")
	}

	// later ticks may have suppressed the same employee inside the cooldown
	// window, so accept either terminal kind
	transition := session.LastTransition()
	if transition == nil {
		t.Fatal("expected a transition to be recorded")
	}
	if transition.Kind != TransitionSuccess && transition.Kind != TransitionDuplicateSuppressed {
		t.Fatalf("unexpected transition kind %s", transition.Kind)
	}
	if transition.EmployeeID == nil || *transition.EmployeeID != "emp-1" {
		t.Errorf("transition should name the recognized employee, got %+v", transition.EmployeeID)
	}
}

func TestSessionStopWaitsForInFlightCycle(t *testing.T) {
	fixture := newMachineFixture(settings.DeviceModeIn)
	fastSettings(fixture)

	cycleRunning := make(chan struct{}, 1)
	release := make(chan struct{})
	fixture.machine.Sleep = func(time.Duration) {}
	slowSyncer := fixture.syncer
	fixture.machine.Syncer = syncerFunc(func() SyncOutcome {
		cycleRunning <- struct{}{}
		<-release
		return slowSyncer.outcome
	})

	session := NewSession(fixture.machine, &staticFrameSource{frame: testFrame()})
	if err := session.Start(); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	<-cycleRunning

	stopped := make(chan struct{})
	go func() {
		session.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop must wait for the in-flight cycle")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the cycle finished")
	}
}

type syncerFunc func() SyncOutcome

func (sf syncerFunc) PostAttendance(employeeID string, logType *entities.LogType, timestamp time.Time) SyncOutcome {
	return sf()
}
