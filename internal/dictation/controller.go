// Package dictation contains the push-to-talk capture controller and
// the service that wires the full dictation pipeline together.
package dictation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxtype/voxtype/pkg/logger"
)

var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

// State is the capture controller's state.
type State int

const (
	// Idle means no dictation is in progress.
	Idle State = iota
	// ArmedWaitingForStream means the hotkey is held but the capture
	// resource has not finished hardware initialization yet.
	ArmedWaitingForStream
	// Recording means audio is flowing to the recognizer.
	Recording
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ArmedWaitingForStream:
		return "armed-waiting-for-stream"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

// LifecycleGate is the controller's view of the stream lifecycle gate.
type LifecycleGate interface {
	Resume()
	Pause()
}

// ListenerStopper stops the hotkey listener, blocking until its
// context has terminated.
type ListenerStopper interface {
	Stop()
}

type signal int

const (
	sigArmed signal = iota
	sigDisarmed
	sigReady
)

// Controller is the push-to-talk state machine. Hotkey edges arrive as
// tokens on a bounded channel and are consumed on the controller's own
// goroutine, so no locks guard the state itself.
type Controller struct {
	logger *logger.Logger
	gate   LifecycleGate

	// onFlush is invoked exactly once per Recording to Idle transition,
	// after Pause. It runs on the controller goroutine; a new recording
	// cannot start until it returns, which keeps a single utterance
	// buffer alive at a time.
	onFlush func()

	signals      chan signal
	readyTimeout time.Duration
	stopTimeout  time.Duration

	state       atomic.Int32
	streamReady bool

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// ControllerConfig configures the controller's timeouts.
type ControllerConfig struct {
	// StreamReadyTimeout bounds the warning for a stream that never
	// reports ready while armed.
	StreamReadyTimeout time.Duration
	// ListenerStopTimeout bounds how long Shutdown waits for the
	// hotkey listener to stop.
	ListenerStopTimeout time.Duration
}

// NewController creates a controller. onFlush may be nil.
func NewController(gate LifecycleGate, onFlush func(), cfg ControllerConfig, log *logger.Logger) *Controller {
	readyTimeout := cfg.StreamReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 10 * time.Second
	}
	stopTimeout := cfg.ListenerStopTimeout
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}
	if onFlush == nil {
		onFlush = func() {}
	}

	c := &Controller{
		logger:       log.Named("controller"),
		gate:         gate,
		onFlush:      onFlush,
		signals:      make(chan signal, 16),
		readyTimeout: readyTimeout,
		stopTimeout:  stopTimeout,
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	go c.run()
	return c
}

// OnHotkeyPress signals an Armed edge. Never blocks; safe to call from
// the listener context.
func (c *Controller) OnHotkeyPress() {
	c.send(sigArmed)
}

// OnHotkeyRelease signals a Disarmed edge. Never blocks; safe to call
// from the listener context.
func (c *Controller) OnHotkeyRelease() {
	c.send(sigDisarmed)
}

// OnResourceReady signals that the capture resource finished hardware
// initialization. One-shot; idempotent after the first call.
func (c *Controller) OnResourceReady() {
	c.send(sigReady)
}

func (c *Controller) send(s signal) {
	select {
	case <-c.stopCh:
	case c.signals <- s:
	default:
		c.logger.Warn("Controller signal queue full, dropping signal",
			Int("signal", int(s)))
	}
}

func (c *Controller) run() {
	defer close(c.done)

	// Armed while the timer channel is non-nil; fires a one-time
	// warning if the stream never reports ready.
	var readyTimer <-chan time.Time

	for {
		select {
		case <-c.stopCh:
			return

		case <-readyTimer:
			readyTimer = nil
			if c.State() == ArmedWaitingForStream {
				c.logger.Warn("Capture stream not ready within timeout, staying armed",
					String("timeout", c.readyTimeout.String()))
			}

		case s := <-c.signals:
			switch s {
			case sigArmed:
				if c.State() != Idle {
					// Re-entrant press; no duplicate Resume.
					continue
				}
				if c.streamReady {
					c.setState(Recording)
					c.logger.Debug("Recording started")
					c.gate.Resume()
				} else {
					c.setState(ArmedWaitingForStream)
					readyTimer = time.After(c.readyTimeout)
					c.logger.Debug("Armed, waiting for capture stream")
				}

			case sigDisarmed:
				switch c.State() {
				case Recording:
					c.setState(Idle)
					c.gate.Pause()
					c.logger.Debug("Recording stopped, flushing")
					c.onFlush()
				case ArmedWaitingForStream:
					// Released before the stream was ready; nothing
					// was ever started, so nothing to stop.
					c.setState(Idle)
					readyTimer = nil
					c.logger.Debug("Armed session dropped before stream ready")
				case Idle:
					// Release while idle; ignored.
				}

			case sigReady:
				first := !c.streamReady
				c.streamReady = true
				if c.State() == ArmedWaitingForStream {
					c.setState(Recording)
					readyTimer = nil
					c.logger.Debug("Capture stream ready, recording started")
					c.gate.Resume()
				} else if first {
					c.logger.Debug("Capture stream ready")
				}
			}
		}
	}
}

// State returns the current state. The value may be stale by the time
// the caller acts on it.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Shutdown stops the hotkey listener and forces Pause. It blocks until
// the listener context has fully terminated, bounded by the configured
// timeout, so no signal can be delivered into a torn-down controller.
func (c *Controller) Shutdown(listener ListenerStopper) {
	c.stopOnce.Do(func() {
		// Stop the listener first so no new edges arrive, bounded so a
		// wedged hook cannot hang process exit.
		if listener != nil {
			stopped := make(chan struct{})
			go func() {
				listener.Stop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(c.stopTimeout):
				c.logger.Error("Hotkey listener did not stop within timeout, proceeding with shutdown",
					String("timeout", c.stopTimeout.String()))
			}
		}

		close(c.stopCh)
		<-c.done

		wasRecording := c.State() == Recording
		c.gate.Pause()
		if wasRecording {
			c.setState(Idle)
			c.onFlush()
		}

		c.logger.Info("Controller shut down")
	})
}
