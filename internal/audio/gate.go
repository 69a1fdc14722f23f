package audio

import (
	"sync"

	"github.com/voxtype/voxtype/pkg/logger"
)

// StreamController is the lifecycle surface of a capture resource.
type StreamController interface {
	Resume() error
	Pause() error
}

// Gate owns the mute/active state of the capture resource. It makes
// Resume and Pause idempotent, suppresses calls before the resource
// exists and after teardown, and never forwards a redundant call to
// the hardware.
type Gate struct {
	logger *logger.Logger

	mu       sync.Mutex
	resource StreamController
	active   bool
	tornDown bool
}

// NewGate creates a gate with no bound resource. Until Bind is called,
// Resume and Pause are no-ops.
func NewGate(log *logger.Logger) *Gate {
	return &Gate{logger: log.Named("stream-gate")}
}

// Bind attaches the capture resource once it has finished hardware
// initialization. Binding after teardown is ignored.
func (g *Gate) Bind(res StreamController) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tornDown {
		g.logger.Debug("Bind after teardown ignored")
		return
	}
	g.resource = res
}

// Resume unmutes the capture resource. Redundant calls and calls
// without a bound resource are no-ops.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tornDown {
		g.logger.Debug("Resume after teardown ignored")
		return
	}
	if g.resource == nil {
		g.logger.Debug("Resume before stream ready ignored")
		return
	}
	if g.active {
		return
	}

	if err := g.resource.Resume(); err != nil {
		g.logger.Error("Failed to resume capture stream", Error(err))
		return
	}
	g.active = true
	g.logger.Debug("Capture stream resumed")
}

// Pause mutes the capture resource. Redundant calls and calls without
// a bound resource are no-ops.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tornDown {
		g.logger.Debug("Pause after teardown ignored")
		return
	}
	if g.resource == nil {
		g.logger.Debug("Pause before stream ready ignored")
		return
	}
	if !g.active {
		return
	}

	if err := g.resource.Pause(); err != nil {
		g.logger.Error("Failed to pause capture stream", Error(err))
		return
	}
	g.active = false
	g.logger.Debug("Capture stream paused")
}

// Teardown detaches the resource. All subsequent Resume/Pause calls
// become no-ops. If the stream is active it is paused first.
func (g *Gate) Teardown() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tornDown {
		return
	}
	if g.active && g.resource != nil {
		if err := g.resource.Pause(); err != nil {
			g.logger.Error("Failed to pause capture stream on teardown", Error(err))
		}
		g.active = false
	}
	g.resource = nil
	g.tornDown = true
}

// IsActive reports whether the capture resource is currently unmuted.
func (g *Gate) IsActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
