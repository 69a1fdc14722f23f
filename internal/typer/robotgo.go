package typer

import (
	"context"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/voxtype/voxtype/pkg/logger"
)

// RobotgoSink types text with OS-level keystroke synthesis.
type RobotgoSink struct {
	logger *logger.Logger

	// preTypingDelay lets the target window settle after the hotkey
	// release before the first keystroke lands.
	preTypingDelay time.Duration

	// typingDelay is the per-character delay; zero types as fast as
	// the OS accepts.
	typingDelay time.Duration
}

// RobotgoConfig configures the keystroke sink.
type RobotgoConfig struct {
	PreTypingDelayMs int
	TypingDelayMs    int
}

// NewRobotgoSink creates the sink.
func NewRobotgoSink(cfg RobotgoConfig, log *logger.Logger) *RobotgoSink {
	return &RobotgoSink{
		logger:         log.Named("keystroke-sink"),
		preTypingDelay: time.Duration(cfg.PreTypingDelayMs) * time.Millisecond,
		typingDelay:    time.Duration(cfg.TypingDelayMs) * time.Millisecond,
	}
}

// Type simulates typing the text into the focused window. A trailing
// space is appended so consecutive utterances do not run together.
func (s *RobotgoSink) Type(ctx context.Context, text string) error {
	if s.preTypingDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.preTypingDelay):
		}
	}

	s.logger.Info("Typing text", Int("chars", len(text)))

	out := text + " "
	if s.typingDelay <= 0 {
		robotgo.TypeStr(out)
		return ctx.Err()
	}

	for _, r := range out {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		robotgo.TypeStr(string(r))
		time.Sleep(s.typingDelay)
	}
	return nil
}
