package attendance

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"facemark.io/infrastructure/logger"
)

// FrameSource hands out the latest camera frame. Implementations own the
// capture device and its teardown.
type FrameSource interface {
	NextFrame() (image.Image, error)
}

// Session ticks the state machine against a frame source until stopped.
// Stop waits for any in-flight cycle, so callers can tear the camera down
// immediately afterwards.
type Session struct {
	machine *StateMachine
	frames  FrameSource

	mutex   sync.Mutex
	cancel  context.CancelFunc
	group   sync.WaitGroup
	running bool
	last    *Transition
}

func NewSession(machine *StateMachine, frames FrameSource) *Session {
	return &Session{machine: machine, frames: frames}
}

func (session *Session) Start() error {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.running {
		return errors.New("attendance session already running")
	}

	config, err := session.machine.LoadSettings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	session.cancel = cancel
	session.running = true
	session.group.Add(1)
	go session.loop(ctx, time.Duration(config.TickIntervalMs)*time.Millisecond)

	logger.Info("attendance session started", logger.LoggerOptions{
		Key:  "tick_interval_ms",
		Data: config.TickIntervalMs,
	})
	return nil
}

// Stop cancels the loop and blocks until the current cycle has released the
// in-flight slot.
func (session *Session) Stop() {
	session.mutex.Lock()
	if !session.running {
		session.mutex.Unlock()
		return
	}
	session.running = false
	cancel := session.cancel
	session.mutex.Unlock()

	cancel()
	session.group.Wait()
	logger.Info("attendance session stopped")
}

func (session *Session) Running() bool {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.running
}

// LastTransition returns the most recent cycle outcome, nil before the first
// engaged cycle.
func (session *Session) LastTransition() *Transition {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.last
}

func (session *Session) loop(ctx context.Context, interval time.Duration) {
	defer session.group.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := session.frames.NextFrame()
			if err != nil {
				logger.Warning("frame capture failed", logger.LoggerOptions{
					Key:  "error",
					Data: err,
				})
				continue
			}
			if transition := session.machine.ProcessFrame(ctx, frame); transition != nil {
				session.mutex.Lock()
				session.last = transition
				session.mutex.Unlock()
			}
		}
	}
}
