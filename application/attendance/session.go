package attendance

import (
	"sync"
	"time"
)

// SessionState is the per-camera-session dedup and lock state. It is created
// at session start and passed into the state machine explicitly so tests can
// run independent sessions side by side.
type SessionState struct {
	mutex sync.Mutex

	processing      bool
	lastProcessedID string
	lastProcessedAt time.Time

	currentState State
}

func NewSessionState() *SessionState {
	return &SessionState{currentState: StateIdle}
}

// TryAcquire takes the single in-flight transaction slot. A false return
// means another cycle is still running and this tick must be skipped, not
// queued.
func (session *SessionState) TryAcquire() bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.processing {
		return false
	}
	session.processing = true
	return true
}

func (session *SessionState) Release() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.processing = false
	session.currentState = StateIdle
}

func (session *SessionState) SetState(state State) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.currentState = state
}

func (session *SessionState) CurrentState() State {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.currentState
}

// RememberProcessed records a successful transition for short-window
// duplicate suppression.
func (session *SessionState) RememberProcessed(employeeID string, at time.Time) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.lastProcessedID = employeeID
	session.lastProcessedAt = at
}

// InCooldown reports whether the same identifier was transitioned within the
// cooldown window of now.
func (session *SessionState) InCooldown(employeeID string, now time.Time, cooldown time.Duration) bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.lastProcessedID != employeeID {
		return false
	}
	return now.Sub(session.lastProcessedAt) < cooldown
}
