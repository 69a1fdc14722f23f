// Package hotkey provides the global push-to-talk hotkey listener.
// It translates OS-level key press/release events into edge events
// delivered on a channel the dictation controller consumes.
package hotkey

import (
	"fmt"
	"sync"

	hk "golang.design/x/hotkey"

	"github.com/voxtype/voxtype/pkg/logger"
)

var (
	String = logger.String
	Error  = logger.Error
)

// Edge is a hotkey transition observed by the listener.
type Edge int

const (
	// Pressed means the push-to-talk key went down.
	Pressed Edge = iota
	// Released means the push-to-talk key came up.
	Released
)

func (e Edge) String() string {
	if e == Pressed {
		return "pressed"
	}
	return "released"
}

// binding maps a named hotkey to the modifier+key combination the OS
// hotkey API can actually register. Bare modifiers cannot be registered
// on their own, so each name binds modifier+Space.
type binding struct {
	mods []hk.Modifier
	key  hk.Key
}

// Listener registers a global hotkey and forwards press/release edges.
// Edges are delivered on a small buffered channel; if the consumer falls
// behind, the newest edge wins and stale ones are dropped.
type Listener struct {
	logger *logger.Logger
	hk     *hk.Hotkey
	edges  chan Edge

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewListener creates a listener for the named hotkey. The name must be
// one of the identifiers accepted by the config package.
func NewListener(name string, log *logger.Logger) (*Listener, error) {
	b, err := lookupBinding(name)
	if err != nil {
		return nil, err
	}

	return &Listener{
		logger: log.Named("hotkey"),
		hk:     hk.New(b.mods, b.key),
		edges:  make(chan Edge, 8),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Edges returns the channel press/release events are delivered on.
func (l *Listener) Edges() <-chan Edge {
	return l.edges
}

// Start registers the hotkey with the OS and begins forwarding edges.
// It returns an error if registration fails (typically another program
// holds the same combination).
func (l *Listener) Start() error {
	if err := l.hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	go l.run()

	l.logger.Info("Hotkey registered")
	return nil
}

func (l *Listener) run() {
	defer close(l.done)

	for {
		select {
		case <-l.stop:
			return
		case <-l.hk.Keydown():
			l.deliver(Pressed)
		case <-l.hk.Keyup():
			l.deliver(Released)
		}
	}
}

// deliver forwards an edge without blocking the OS event loop. When the
// buffer is full the oldest pending edge is discarded so the consumer
// always sees the most recent transition.
func (l *Listener) deliver(e Edge) {
	for {
		select {
		case l.edges <- e:
			return
		default:
			select {
			case <-l.edges:
			default:
			}
		}
	}
}

// Stop unregisters the hotkey and waits for the forwarding loop to exit.
// It is safe to call more than once.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		if err := l.hk.Unregister(); err != nil {
			l.logger.Error("Failed to unregister hotkey", Error(err))
		}
		<-l.done
		l.logger.Info("Hotkey listener stopped")
	})
}

func lookupBinding(name string) (binding, error) {
	switch name {
	case "ctrl_r", "ctrl_l":
		return binding{mods: []hk.Modifier{hk.ModCtrl}, key: hk.KeySpace}, nil
	case "alt_r", "alt_l":
		return binding{mods: []hk.Modifier{modAlt}, key: hk.KeySpace}, nil
	case "shift_r", "shift_l":
		return binding{mods: []hk.Modifier{hk.ModShift}, key: hk.KeySpace}, nil
	default:
		return binding{}, fmt.Errorf("unknown hotkey name: %q", name)
	}
}
