package audio

import (
	"testing"

	"github.com/voxtype/voxtype/pkg/logger"
)

type fakeStream struct {
	resumes int
	pauses  int
}

func (f *fakeStream) Resume() error { f.resumes++; return nil }
func (f *fakeStream) Pause() error  { f.pauses++; return nil }

func TestGateNoOpBeforeBind(t *testing.T) {
	g := NewGate(logger.NewNop())

	g.Resume()
	g.Pause()

	if g.IsActive() {
		t.Error("gate active without a bound resource")
	}
}

func TestGateIdempotentResumePause(t *testing.T) {
	g := NewGate(logger.NewNop())
	fs := &fakeStream{}
	g.Bind(fs)

	g.Resume()
	g.Resume()
	g.Resume()
	if fs.resumes != 1 {
		t.Errorf("resumes = %d, want 1", fs.resumes)
	}

	g.Pause()
	g.Pause()
	if fs.pauses != 1 {
		t.Errorf("pauses = %d, want 1", fs.pauses)
	}

	g.Resume()
	if fs.resumes != 2 {
		t.Errorf("resumes after pause = %d, want 2", fs.resumes)
	}
}

func TestGateNoOpAfterTeardown(t *testing.T) {
	g := NewGate(logger.NewNop())
	fs := &fakeStream{}
	g.Bind(fs)

	g.Resume()
	g.Teardown()

	if fs.pauses != 1 {
		t.Errorf("teardown while active should pause once, got %d", fs.pauses)
	}

	g.Resume()
	g.Pause()
	if fs.resumes != 1 || fs.pauses != 1 {
		t.Errorf("calls after teardown reached resource: resumes=%d pauses=%d", fs.resumes, fs.pauses)
	}
	if g.IsActive() {
		t.Error("gate active after teardown")
	}
}

func TestGateBindAfterTeardownIgnored(t *testing.T) {
	g := NewGate(logger.NewNop())
	g.Teardown()

	fs := &fakeStream{}
	g.Bind(fs)
	g.Resume()

	if fs.resumes != 0 {
		t.Errorf("resume after post-teardown bind reached resource: %d", fs.resumes)
	}
}
