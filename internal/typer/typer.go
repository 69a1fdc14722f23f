// Package typer delivers final utterance text to the OS-focused window
// by simulating keyboard input.
package typer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/voxtype/voxtype/pkg/logger"
)

var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

// Sink receives final text and types it into the focused window.
type Sink interface {
	Type(ctx context.Context, text string) error
}

// Worker serializes typing requests so two utterances never interleave
// their keystrokes. Requests are queued; Close drains nothing and
// returns once the queue goroutine has stopped.
type Worker struct {
	sink   Sink
	logger *logger.Logger

	queue     chan string
	closeOnce sync.Once
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWorker creates and starts a typing worker.
func NewWorker(sink Sink, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		sink:   sink,
		logger: log.Named("typer"),
		queue:  make(chan string, 16),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go w.run()
	return w
}

// Enqueue submits text for typing. Blank text is dropped. If the queue
// is full the text is dropped with an error log rather than blocking
// the pipeline.
func (w *Worker) Enqueue(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	select {
	case w.queue <- text:
	default:
		w.logger.Error("Typing queue full, dropping utterance",
			Int("text_len", len(text)))
	}
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case text := <-w.queue:
			start := time.Now()
			if err := w.sink.Type(w.ctx, text); err != nil {
				w.logger.Error("Failed to type text", Error(err))
				continue
			}
			w.logger.Debug("Typed utterance",
				Int("chars", len(text)),
				String("elapsed", time.Since(start).String()))
		}
	}
}

// Close stops the worker. Queued but untyped utterances are discarded.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		w.cancel()
		<-w.done
	})
}
